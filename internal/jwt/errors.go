package jwt

import "errors"

// Cada causa de rechazo es un error distinto: el Request Gate los loguea y
// degrada a anónimo, pero el refresh flow y los tests necesitan distinguirlos.
var (
	// ErrMalformed indica un token estructuralmente inválido (segmentos,
	// base64, JSON).
	ErrMalformed = errors.New("malformed credential")

	// ErrSignature indica firma que no verifica con la clave configurada
	// (token adulterado o firmado con otra clave).
	ErrSignature = errors.New("signature mismatch")

	// ErrExpired indica "exp" en el pasado. Sin ventana de gracia.
	ErrExpired = errors.New("credential expired")

	// ErrUnsupportedAlg indica un "alg" ausente o distinto de HS256.
	ErrUnsupportedAlg = errors.New("unsupported signing algorithm")

	// ErrEmptyClaims indica claims vacíos o sin subject parseable.
	ErrEmptyClaims = errors.New("empty or unparseable claims")
)

package jwt

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Claims es el resultado de una verificación exitosa.
type Claims struct {
	SubjectID int64
	Roles     []string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verify re-deriva la firma con la clave configurada y valida exp sin
// ventana de gracia. Cada causa de rechazo mapea a un error distinto de
// errors.go; nunca retorna un error genérico de la librería.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	mc := jwtv5.MapClaims{}
	tk, err := jwtv5.ParseWithClaims(raw, mc, func(t *jwtv5.Token) (any, error) {
		// Solo HS256: cualquier otro alg (incluido "none") se rechaza acá.
		if t.Method == nil || t.Method.Alg() != jwtv5.SigningMethodHS256.Alg() {
			return nil, ErrUnsupportedAlg
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, translate(err)
	}
	if !tk.Valid {
		return nil, ErrSignature
	}
	return claimsFrom(mc)
}

// translate colapsa los errores de jwt/v5 a los kinds propios.
func translate(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedAlg):
		return ErrUnsupportedAlg
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid):
		return ErrSignature
	case errors.Is(err, jwtv5.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}

func claimsFrom(mc jwtv5.MapClaims) (*Claims, error) {
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrEmptyClaims
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, ErrEmptyClaims
	}

	out := &Claims{SubjectID: uid}

	if email, ok := mc["email"].(string); ok {
		out.Email = email
	}
	if auths, ok := mc["authorities"].(string); ok && auths != "" {
		out.Roles = strings.Split(auths, ",")
	}
	if iat, ok := mc["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := mc["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return out, nil
}

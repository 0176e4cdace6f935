package jwt

import (
	"strconv"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer firma tokens con una única clave simétrica HMAC (HS256).
// Es puro: no toca red ni base de datos. La clave viene de config y es
// inmutable durante la vida del proceso.
type Issuer struct {
	secret []byte
	iss    string
}

func NewIssuer(secret []byte, iss string) *Issuer {
	return &Issuer{secret: secret, iss: iss}
}

// IssueAccess emite un access token autocontenido:
// sub (ID de usuario como string), authorities (roles unidos por coma),
// email, iat y exp.
func (i *Issuer) IssueAccess(subjectID int64, roles []string, email string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{
		"iss":         i.iss,
		"sub":         strconv.FormatInt(subjectID, 10),
		"jti":         uuid.NewString(),
		"authorities": strings.Join(roles, ","),
		"email":       email,
		"iat":         now.Unix(),
		"exp":         exp.Unix(),
	}
	signed, err := i.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh emite un refresh token con claims mínimos: sub, jti, iat,
// exp. El jti hace única cada emisión: iat tiene granularidad de segundo y
// dos logins en el mismo segundo firmarían el mismo string, que además
// choca con el UNIQUE de la columna token en el store. El valor firmado
// literal se persiste en el store; un refresh con firma válida pero sin
// fila no sirve de nada.
func (i *Issuer) IssueRefresh(subjectID int64, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{
		"iss": i.iss,
		"sub": strconv.FormatInt(subjectID, 10),
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	signed, err := i.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (i *Issuer) sign(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.secret)
}

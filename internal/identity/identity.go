// Package identity normaliza los payloads crudos de los proveedores de
// identidad social a una representación canónica única.
//
// El set de proveedores es cerrado: agregar uno es agregar una función de
// mapeo puro a la tabla de variantes, no subclasear nada.
package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical es la identidad neutral respecto del proveedor. Es transitoria:
// existe solo para alimentar la reconciliación de cuenta, no se persiste.
type Canonical struct {
	Provider   string
	ProviderID string
	// Email puede quedar vacío: algunos proveedores no lo entregan.
	// En ese caso el reconciliador sintetiza uno (ver SyntheticEmail).
	Email     string
	Name      string
	AvatarURL string
}

// UnsupportedProviderError indica un providerKey no configurado.
// Es terminal para el intento de login y carga la key ofensora.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("identity: proveedor no soportado: %q", e.Provider)
}

// mapper es la función pura de una variante: atributos crudos → canónico.
type mapper func(attrs map[string]any) Canonical

var mappers = map[string]mapper{
	"kakao":  kakaoIdentity,
	"google": googleIdentity,
	"naver":  naverIdentity,
}

// Normalize selecciona la variante por match exacto case-insensitive de la
// key y aplica el mapeo. Solo el ID está garantizado: si el proveedor no lo
// entrega se sustituye un placeholder con scope de proveedor en lugar de
// fallar, para que la resolución de identidad sea total.
func Normalize(provider string, attrs map[string]any) (Canonical, error) {
	key := strings.ToLower(strings.TrimSpace(provider))
	fn, ok := mappers[key]
	if !ok {
		return Canonical{}, &UnsupportedProviderError{Provider: provider}
	}

	c := fn(attrs)
	c.Provider = key
	if c.ProviderID == "" {
		c.ProviderID = key + "_unknown"
	}
	return c, nil
}

// Supported reporta si el providerKey tiene variante configurada.
func Supported(provider string) bool {
	_, ok := mappers[strings.ToLower(strings.TrimSpace(provider))]
	return ok
}

// SyntheticEmail sintetiza un email determinístico para proveedores que no
// lo entregan, de forma que el lookup por email siga siendo viable.
func SyntheticEmail(provider, providerID, domain string) string {
	return fmt.Sprintf("%s_%s@%s", provider, providerID, domain)
}

// ---- helpers de extracción tolerantes a campos ausentes ----

// nested retorna el sub-mapa attrs[key], o nil si no existe o no es mapa.
func nested(attrs map[string]any, key string) map[string]any {
	if attrs == nil {
		return nil
	}
	m, _ := attrs[key].(map[string]any)
	return m
}

// str retorna m[key] como string, o "" si falta o no es string.
func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// idString convierte el campo id a string. Los decoders JSON entregan
// números como float64; los IDs de kakao son numéricos.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_KakaoFullPayload(t *testing.T) {
	// Un decoder JSON entrega el id numérico como float64.
	attrs := map[string]any{
		"id": float64(123456789),
		"properties": map[string]any{
			"nickname":      "보라",
			"profile_image": "https://k.kakaocdn.net/img.jpg",
		},
		"kakao_account": map[string]any{
			"email": "bora@kakao.com",
		},
	}

	c, err := Normalize("kakao", attrs)
	require.NoError(t, err)
	assert.Equal(t, "kakao", c.Provider)
	assert.Equal(t, "123456789", c.ProviderID)
	assert.Equal(t, "보라", c.Name)
	assert.Equal(t, "https://k.kakaocdn.net/img.jpg", c.AvatarURL)
	assert.Equal(t, "bora@kakao.com", c.Email)
}

func TestNormalize_KakaoMissingOptionalBlocks(t *testing.T) {
	// Sin properties ni kakao_account: campos opcionales vacíos, sin panic.
	c, err := Normalize("kakao", map[string]any{"id": float64(55)})
	require.NoError(t, err)
	assert.Equal(t, "55", c.ProviderID)
	assert.Empty(t, c.Name)
	assert.Empty(t, c.AvatarURL)
	assert.Empty(t, c.Email)
}

func TestNormalize_KakaoMissingID_Placeholder(t *testing.T) {
	c, err := Normalize("kakao", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "kakao_unknown", c.ProviderID)

	c, err = Normalize("kakao", nil)
	require.NoError(t, err)
	assert.Equal(t, "kakao_unknown", c.ProviderID)
}

func TestNormalize_CaseInsensitiveKey(t *testing.T) {
	c, err := Normalize("  KaKaO ", map[string]any{"id": "9"})
	require.NoError(t, err)
	assert.Equal(t, "kakao", c.Provider)
	assert.Equal(t, "9", c.ProviderID)
}

func TestNormalize_UnsupportedProvider(t *testing.T) {
	_, err := Normalize("facebook", map[string]any{"id": "1"})
	require.Error(t, err)

	var upe *UnsupportedProviderError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, "facebook", upe.Provider)
	assert.Contains(t, upe.Error(), "facebook")
}

func TestNormalize_Google(t *testing.T) {
	c, err := Normalize("google", map[string]any{
		"sub":     "108572331",
		"name":    "Ana Gómez",
		"email":   "ana@gmail.com",
		"picture": "https://lh3.googleusercontent.com/a.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "108572331", c.ProviderID)
	assert.Equal(t, "Ana Gómez", c.Name)
	assert.Equal(t, "ana@gmail.com", c.Email)
	assert.Equal(t, "https://lh3.googleusercontent.com/a.jpg", c.AvatarURL)
}

func TestNormalize_NaverNestedResponse(t *testing.T) {
	c, err := Normalize("naver", map[string]any{
		"resultcode": "00",
		"response": map[string]any{
			"id":            "abc-123",
			"nickname":      "nv",
			"email":         "nv@naver.com",
			"profile_image": "https://phinf.net/p.png",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", c.ProviderID)
	assert.Equal(t, "nv", c.Name)

	// Sin bloque response: placeholder, nunca panic.
	c, err = Normalize("naver", map[string]any{"resultcode": "00"})
	require.NoError(t, err)
	assert.Equal(t, "naver_unknown", c.ProviderID)
}

func TestSyntheticEmail_Pattern(t *testing.T) {
	got := SyntheticEmail("kakao", "123456789", "users.communo.app")
	assert.Equal(t, "kakao_123456789@users.communo.app", got)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("kakao"))
	assert.True(t, Supported("GOOGLE"))
	assert.False(t, Supported("github"))
}

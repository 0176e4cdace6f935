package identity

// kakaoIdentity mapea la respuesta de /v2/user/me de Kakao.
// Formato: id numérico top-level, nickname/imagen bajo "properties",
// email bajo "kakao_account" (solo si el usuario consintió compartirlo).
func kakaoIdentity(attrs map[string]any) Canonical {
	c := Canonical{}
	if attrs == nil {
		return c
	}

	c.ProviderID = idString(attrs["id"])

	props := nested(attrs, "properties")
	c.Name = str(props, "nickname")
	c.AvatarURL = str(props, "profile_image")

	// El email es opt-in del usuario: puede faltar todo el bloque.
	account := nested(attrs, "kakao_account")
	c.Email = str(account, "email")

	return c
}

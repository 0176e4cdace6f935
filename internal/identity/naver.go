package identity

// naverIdentity mapea la respuesta de /v1/nid/me de Naver: todo el perfil
// viene anidado bajo "response".
func naverIdentity(attrs map[string]any) Canonical {
	resp := nested(attrs, "response")
	c := Canonical{
		ProviderID: idString(resp["id"]),
		Name:       str(resp, "nickname"),
		Email:      str(resp, "email"),
		AvatarURL:  str(resp, "profile_image"),
	}
	if c.Name == "" {
		c.Name = str(resp, "name")
	}
	return c
}

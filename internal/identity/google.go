package identity

// googleIdentity mapea el userinfo OIDC de Google: todos los campos son
// top-level y el ID viaja en "sub".
func googleIdentity(attrs map[string]any) Canonical {
	if attrs == nil {
		return Canonical{}
	}
	return Canonical{
		ProviderID: idString(attrs["sub"]),
		Name:       str(attrs, "name"),
		Email:      str(attrs, "email"),
		AvatarURL:  str(attrs, "picture"),
	}
}

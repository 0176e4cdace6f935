package repository

import (
	"context"
	"time"
)

// Roles del sistema. El rol es un check binario: usuario o admin.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Providers de autenticación conocidos.
const (
	ProviderLocal = "local"
)

// User representa un usuario del sistema. El ID numérico es inmutable y es
// la única referencia que usan los colaboradores externos (posts, comments).
type User struct {
	ID    int64
	Email string
	// PasswordHash solo existe para identidades locales (PHC argon2id).
	PasswordHash *string
	Name         string
	AvatarURL    string
	Role         string
	Provider     string
	ProviderID   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email        string
	PasswordHash *string
	Name         string
	AvatarURL    string
	Role         string
	Provider     string
	ProviderID   string
}

// UserRepository define operaciones sobre usuarios. Es el contrato angosto
// por el que el reconciliador muta la tabla de usuarios, que en el resto
// del backend es propiedad del colaborador de cuentas.
type UserRepository interface {
	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID int64) (*User, error)

	// GetByEmail busca un usuario por email (login local).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByProvider busca por el par (provider, provider_id).
	// El email no sirve de key acá: puede ser sintético o colisionar
	// entre proveedores. Retorna ErrNotFound si no existe.
	GetByProvider(ctx context.Context, provider, providerID string) (*User, error)

	// Create crea un usuario con active=true.
	// Retorna ErrConflict si el par (provider, provider_id) ya existe:
	// la constraint de unicidad del store es el árbitro final de la
	// carrera de primer login.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// UpdateProfile actualiza solo nombre y avatar: son los únicos campos
	// que se refrescan en cada re-login social. Email y provider_id
	// quedan anclados a la creación.
	UpdateProfile(ctx context.Context, userID int64, name, avatarURL string) error

	// Deactivate marca active=false, reemplaza el email por uno de
	// tombstone y limpia los campos de perfil. Es monotónico: no hay
	// operación de reactivación en este contrato.
	Deactivate(ctx context.Context, userID int64) error

	// Authorities retorna los grants del usuario (p.ej. ["ROLE_USER"]).
	Authorities(ctx context.Context, userID int64) ([]string, error)

	// AddAuthority materializa un grant para el usuario.
	AddAuthority(ctx context.Context, userID int64, authority string) error
}

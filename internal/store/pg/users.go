package pg

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/communo/internal/domain/repository"
)

type UserStore struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, password_hash, name, avatar_url, role, provider, provider_id, active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*repository.User, error) {
	var u repository.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.AvatarURL,
		&u.Role, &u.Provider, &u.ProviderID, &u.Active,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID int64) (*repository.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *UserStore) GetByProvider(ctx context.Context, provider, providerID string) (*repository.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = $1 AND provider_id = $2`,
		provider, providerID))
}

func (s *UserStore) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	// La UNIQUE (provider, provider_id) es el árbitro de la carrera de
	// primer login: el perdedor recibe 23505 → ErrConflict.
	return scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, avatar_url, role, provider, provider_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING `+userColumns,
		in.Email, in.PasswordHash, in.Name, in.AvatarURL, in.Role, in.Provider, in.ProviderID,
	))
}

func (s *UserStore) UpdateProfile(ctx context.Context, userID int64, name, avatarURL string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		   SET name = $2, avatar_url = $3, updated_at = now()
		 WHERE id = $1`,
		userID, name, avatarURL,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *UserStore) Deactivate(ctx context.Context, userID int64) error {
	// El email se reemplaza por un tombstone determinístico: libera el
	// email real (UNIQUE) y deja rastro del ID.
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		   SET active = FALSE,
		       email = 'deleted_' || id || '@deleted.communo.app',
		       name = '',
		       avatar_url = '',
		       updated_at = now()
		 WHERE id = $1 AND active`,
		userID,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		// Ya estaba desactivado o no existe: distinguimos con un lookup.
		if _, err := s.GetByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserStore) Authorities(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT authority FROM user_authority WHERE user_id = $1 ORDER BY authority`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *UserStore) AddAuthority(ctx context.Context, userID int64, authority string) error {
	// ON CONFLICT: materializar un grant existente es un no-op.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_authority (id, user_id, authority)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, authority) DO NOTHING`,
		uuid.New(), userID, authority,
	)
	return mapError(err)
}

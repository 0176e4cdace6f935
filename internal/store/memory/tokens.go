package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/communo/internal/domain/repository"
)

type tokenRow struct {
	token repository.RefreshToken
}

type TokenStore struct {
	mu      *sync.Mutex
	byToken map[string]*tokenRow
}

func (s *TokenStore) Issue(_ context.Context, in repository.IssueTokenInput) (*repository.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byToken[in.Token]; ok {
		return nil, repository.ErrConflict
	}

	// Revocar-antes-de-insertar bajo el mismo lock: el invariante de una
	// sola credencial activa por usuario se sostiene igual que en la
	// transacción de Postgres.
	now := time.Now().UTC()
	for _, row := range s.byToken {
		if row.token.UserID == in.UserID && row.token.RevokedAt == nil {
			at := now
			row.token.RevokedAt = &at
		}
	}

	row := &tokenRow{token: repository.RefreshToken{
		ID:          uuid.New(),
		Token:       in.Token,
		UserID:      in.UserID,
		IssuedAt:    now,
		ExpiresAt:   in.ExpiresAt,
		RotatedFrom: in.RotatedFrom,
	}}
	s.byToken[in.Token] = row

	t := row.token
	return &t, nil
}

func (s *TokenStore) GetByToken(_ context.Context, token string) (*repository.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byToken[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := row.token
	return &t, nil
}

func (s *TokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byToken[token]
	if !ok {
		return repository.ErrNotFound
	}
	if row.token.RevokedAt == nil {
		at := time.Now().UTC()
		row.token.RevokedAt = &at
	}
	return nil
}

func (s *TokenStore) RevokeAllByUser(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, row := range s.byToken {
		if row.token.UserID == userID && row.token.RevokedAt == nil {
			at := now
			row.token.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (s *TokenStore) CountActiveByUser(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, row := range s.byToken {
		if row.token.UserID == userID && row.token.RevokedAt == nil && row.token.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

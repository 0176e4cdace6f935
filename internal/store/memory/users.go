package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/communo/internal/domain/repository"
)

type userRow struct {
	user        repository.User
	authorities map[string]struct{}
}

type UserStore struct {
	mu     *sync.Mutex
	nextID int64
	byID   map[int64]*userRow
}

func (s *UserStore) GetByID(_ context.Context, userID int64) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := row.user
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.byID {
		if row.user.Email == email {
			u := row.user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) GetByProvider(_ context.Context, provider, providerID string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.byID {
		if row.user.Provider == provider && row.user.ProviderID == providerID {
			u := row.user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mismas restricciones UNIQUE que el esquema de Postgres.
	for _, row := range s.byID {
		if row.user.Provider == in.Provider && row.user.ProviderID == in.ProviderID {
			return nil, repository.ErrConflict
		}
		if row.user.Email == in.Email {
			return nil, repository.ErrConflict
		}
	}

	s.nextID++
	now := time.Now().UTC()
	row := &userRow{
		user: repository.User{
			ID:           s.nextID,
			Email:        in.Email,
			PasswordHash: in.PasswordHash,
			Name:         in.Name,
			AvatarURL:    in.AvatarURL,
			Role:         in.Role,
			Provider:     in.Provider,
			ProviderID:   in.ProviderID,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		authorities: make(map[string]struct{}),
	}
	s.byID[row.user.ID] = row

	u := row.user
	return &u, nil
}

func (s *UserStore) UpdateProfile(_ context.Context, userID int64, name, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	row.user.Name = name
	row.user.AvatarURL = avatarURL
	row.user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *UserStore) Deactivate(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if !row.user.Active {
		return nil
	}
	row.user.Active = false
	row.user.Email = fmt.Sprintf("deleted_%d@deleted.communo.app", userID)
	row.user.Name = ""
	row.user.AvatarURL = ""
	row.user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *UserStore) Authorities(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]string, 0, len(row.authorities))
	for a := range row.authorities {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

func (s *UserStore) AddAuthority(_ context.Context, userID int64, authority string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	row.authorities[authority] = struct{}{}
	return nil
}

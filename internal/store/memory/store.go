// Package memory implementa los repositorios de dominio sobre mapas en
// proceso. Se usa en modo "memory" (desarrollo sin Postgres) y como
// doble de pruebas en los servicios: respeta los mismos errores
// centinela y las mismas restricciones de unicidad que el store real.
package memory

import "sync"

type Store struct {
	users  *UserStore
	tokens *TokenStore
}

func New() *Store {
	mu := &sync.Mutex{}
	return &Store{
		users:  &UserStore{mu: mu, byID: make(map[int64]*userRow)},
		tokens: &TokenStore{mu: mu, byToken: make(map[string]*tokenRow)},
	}
}

func (s *Store) Users() *UserStore   { return s.users }
func (s *Store) Tokens() *TokenStore { return s.tokens }

package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memory struct {
	c      *gocache.Cache
	prefix string
}

// NewMemory crea un cache in-process respaldado por go-cache.
func NewMemory(prefix string, defaultTTL time.Duration) Client {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &memory{c: gocache.New(defaultTTL, time.Minute), prefix: prefix}
}

func (m *memory) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.prefix + key)
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(m.prefix+key, value, ttl)
	return nil
}

func (m *memory) Delete(_ context.Context, key string) error {
	m.c.Delete(m.prefix + key)
	return nil
}

func (m *memory) Ping(context.Context) error { return nil }
func (m *memory) Close() error               { return nil }

package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Decision es el veredicto del limitador para un intento puntual.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration // solo con Allowed=false: resto de la ventana
}

// Limiter decide si el intento identificado por key puede pasar.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// FixedWindow cuenta intentos por ventana fija en redis (INCR + EXPIRE).
// Los contadores de ventanas viejas expiran solos; no hay limpieza.
type FixedWindow struct {
	client *rdb.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewLoginLimiter protege /auth/login y /auth/refresh: pocos intentos por
// IP en ventana corta. El credential stuffing barato se corta acá.
func NewLoginLimiter(client *rdb.Client, limit int, window time.Duration) *FixedWindow {
	return newFixedWindow(client, "rl:login:", limit, window)
}

// NewSocialLimiter protege el inicio y el callback del flujo OAuth. Más
// laxo: el usuario rebota legítimamente entre nosotros y el proveedor.
func NewSocialLimiter(client *rdb.Client, limit int, window time.Duration) *FixedWindow {
	return newFixedWindow(client, "rl:social:", limit, window)
}

func newFixedWindow(client *rdb.Client, prefix string, limit int, window time.Duration) *FixedWindow {
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindow{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// bucket alinea la clave a la ventana actual: rl:login:1.2.3.4:1756400000
func (l *FixedWindow) bucket(key string, at time.Time) string {
	win := at.Truncate(l.window).Unix()
	return fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), win)
}

func (l *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now().UTC()
	bucket := l.bucket(key, now)

	pipe := l.client.TxPipeline()
	hits := pipe.Incr(ctx, bucket)
	// NX: el TTL se fija en el primer hit y no se renueva después.
	pipe.ExpireNX(ctx, bucket, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	n := hits.Val()
	if n > l.limit {
		return Decision{RetryAfter: l.window - now.Sub(now.Truncate(l.window))}, nil
	}
	return Decision{Allowed: true, Remaining: l.limit - n}, nil
}

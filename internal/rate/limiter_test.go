package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedWindow_BucketAlignment(t *testing.T) {
	l := NewLoginLimiter(nil, 10, time.Minute)

	at := time.Date(2026, 8, 29, 10, 30, 45, 0, time.UTC)
	b1 := l.bucket("1.2.3.4", at)
	b2 := l.bucket("1.2.3.4", at.Add(10*time.Second))
	b3 := l.bucket("1.2.3.4", at.Add(time.Minute))

	// Mismo minuto, mismo contador; minuto siguiente, contador nuevo.
	assert.Equal(t, b1, b2)
	assert.NotEqual(t, b1, b3)
	assert.Contains(t, b1, "rl:login:1.2.3.4:")
}

func TestFixedWindow_KeySanitized(t *testing.T) {
	l := NewSocialLimiter(nil, 10, time.Minute)
	b := l.bucket("a b c", time.Now().UTC())
	assert.NotContains(t, b, " ")
	assert.Contains(t, b, "rl:social:")
}

func TestNewFixedWindow_WindowFallback(t *testing.T) {
	l := newFixedWindow(nil, "rl:", 5, 0)
	assert.Equal(t, time.Minute, l.window)
}

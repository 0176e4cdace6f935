package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/communo/internal/rate"
)

// stubLimiter devuelve siempre la misma decisión (o error).
type stubLimiter struct {
	dec rate.Decision
	err error
}

func (s stubLimiter) Allow(context.Context, string) (rate.Decision, error) {
	return s.dec, s.err
}

func rateProbe(lim rate.Limiter) (http.Handler, *probe) {
	p := &probe{}
	h := WithRateLimit(RateLimitConfig{Limiter: lim, KeyFunc: IPOnlyRateKey})(p)
	return h, p
}

func TestWithRateLimit_Blocked(t *testing.T) {
	h, p := rateProbe(stubLimiter{dec: rate.Decision{RetryAfter: 30 * time.Second}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	assert.False(t, p.called)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestWithRateLimit_Allowed(t *testing.T) {
	h, p := rateProbe(stubLimiter{dec: rate.Decision{Allowed: true, Remaining: 7}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	assert.True(t, p.called)
	assert.Equal(t, "7", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestWithRateLimit_FailOpen(t *testing.T) {
	// Redis caído no es razón para tirar un login.
	h, p := rateProbe(stubLimiter{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	assert.True(t, p.called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithRateLimit_NilLimiterIsPassthrough(t *testing.T) {
	p := &probe{}
	h := WithRateLimit(RateLimitConfig{})(p)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, p.called)
}

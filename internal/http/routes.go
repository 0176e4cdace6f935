// Package http arma el router y el servidor del API de communo.
package http

import (
	stdhttp "net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/http/handlers"
	mw "github.com/dropDatabas3/communo/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/communo/internal/jwt"
	"github.com/dropDatabas3/communo/internal/rate"
)

// RouterDeps contiene todo lo que el router necesita para armar las rutas.
type RouterDeps struct {
	Handlers *handlers.Handlers
	Issuer   *jwtx.Issuer
	Users    repository.UserRepository

	// Readyz consulta el store; nil lo deja siempre listo (modo memory).
	Readyz handlers.Pinger

	// Limiters opcionales; nil desactiva el límite correspondiente.
	LoginLimiter  rate.Limiter
	SocialLimiter rate.Limiter

	CORSAllowedOrigins []string
}

// NewRouter registra todas las rutas con sus cadenas de middlewares.
func NewRouter(deps RouterDeps) stdhttp.Handler {
	h := deps.Handlers
	mux := stdhttp.NewServeMux()

	// Infraestructura
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.Handle("GET /readyz", handlers.NewReadyz(deps.Readyz))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Cadenas base
	base := func(next stdhttp.Handler) stdhttp.Handler {
		return mw.Chain(next,
			mw.WithRecover(),
			mw.WithRequestID(),
			mw.WithSecurityHeaders(),
			mw.WithCORS(deps.CORSAllowedOrigins),
			mw.WithLogging(),
		)
	}
	limited := func(limiter rate.Limiter, next stdhttp.Handler) stdhttp.Handler {
		return base(mw.Chain(next, mw.WithRateLimit(mw.RateLimitConfig{
			Limiter: limiter,
			KeyFunc: mw.IPOnlyRateKey,
		})))
	}
	authed := func(next stdhttp.Handler) stdhttp.Handler {
		return base(mw.Chain(next, mw.RequireAuth(deps.Issuer, deps.Users)))
	}

	// Login social (Go 1.22+ path params)
	mux.Handle("GET /oauth2/authorize/{provider}",
		limited(deps.SocialLimiter, stdhttp.HandlerFunc(h.HandleSocialStart)))
	mux.Handle("GET /oauth2/callback/{provider}",
		limited(deps.SocialLimiter, stdhttp.HandlerFunc(h.HandleSocialCallback)))

	// Sesiones
	mux.Handle("POST /auth/login", limited(deps.LoginLimiter, stdhttp.HandlerFunc(h.HandleLogin)))
	mux.Handle("POST /auth/refresh", limited(deps.LoginLimiter, stdhttp.HandlerFunc(h.HandleRefresh)))
	mux.Handle("POST /auth/logout", base(stdhttp.HandlerFunc(h.HandleLogout)))

	// Cuenta
	mux.Handle("GET /auth/me", authed(stdhttp.HandlerFunc(h.HandleMe)))
	mux.Handle("DELETE /auth/me", authed(stdhttp.HandlerFunc(h.HandleDeactivate)))

	return mux
}

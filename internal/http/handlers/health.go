package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/communo/internal/http/helpers"
)

// Pinger es lo mínimo que el readiness check necesita del store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleHealthz atiende GET /healthz: vivo o no, sin tocar dependencias.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewReadyz arma GET /readyz: listo solo si el store responde.
func NewReadyz(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if store != nil {
			if err := store.Ping(ctx); err != nil {
				helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"store":  err.Error(),
				})
				return
			}
		}
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// Package health contains liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/gatekit/internal/http/helpers"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// Pinger es lo mínimo que el health check necesita del store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController expone /healthz y /readyz.
type HealthController struct {
	store Pinger
}

// NewHealthController crea el controller.
func NewHealthController(store Pinger) *HealthController {
	return &HealthController{store: store}
}

// Healthz handles GET /healthz: proceso vivo, sin tocar dependencias.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz: listo para servir tráfico (store accesible).
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		logger.From(r.Context()).Warn("readiness check failed", logger.Err(err))
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

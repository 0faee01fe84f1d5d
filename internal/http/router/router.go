// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apikeyctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/apikey"
	cliauthctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/cliauth"
	healthctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/health"
	orgctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/organization"
	sessionctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/session"
	"github.com/dropDatabas3/gatekit/internal/http/errors"
	mw "github.com/dropDatabas3/gatekit/internal/http/middlewares"
	sessionsvc "github.com/dropDatabas3/gatekit/internal/http/services/session"
	"github.com/dropDatabas3/gatekit/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Login        *cliauthctrl.LoginController
	Session      *sessionctrl.SessionController
	Organization *orgctrl.OrganizationController
	APIKey       *apikeyctrl.APIKeyController
	Health       *healthctrl.HealthController

	Sessions     sessionsvc.Service
	LoginLimiter rate.Limiter // solo /cli/login/*; nil deshabilita
	CORSOrigins  []string
}

// New construye el handler raíz con la cadena de middlewares base.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, req, errors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, req, errors.ErrMethodNotAllowed)
	})

	r.Use(func(next http.Handler) http.Handler {
		return mw.Chain(next,
			mw.WithRecover(),
			mw.WithRequestID(),
			mw.WithSecurityHeaders(),
			mw.WithCORS(d.CORSOrigins),
		)
	})

	// salud y métricas, sin rate limit ni auth
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// flujo de login: rate limit por IP, respuestas nunca cacheables
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return mw.Chain(next,
				mw.WithRateLimit(d.LoginLimiter),
				mw.WithNoStore(),
			)
		})
		r.Post("/cli/login/initiate", d.Login.Initiate)
		r.Post("/cli/login/complete", d.Login.Complete)
		r.Get("/cli/login/select", d.Login.Select)
		r.Get("/cli/login/callback/{provider}", d.Login.Callback)
	})

	// sesiones: operan sobre el Bearer token directamente
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return mw.Chain(next, mw.WithNoStore())
		})
		r.Get("/cli/session/validate", d.Session.Validate)
		r.Post("/cli/session/refresh", d.Session.Refresh)
		r.Post("/cli/session/revoke", d.Session.Revoke)
	})

	// recursos autenticados
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return mw.Chain(next, mw.WithSessionAuth(d.Sessions))
		})
		r.Post("/cli/organizations", d.Organization.Create)
		r.Get("/cli/api-keys", d.APIKey.List)
		r.Post("/cli/api-keys", d.APIKey.Create)
		r.Post("/cli/applications", d.APIKey.CreateApplication)
		r.Post("/cli/applications/{id}/api-key", d.APIKey.Bind)
	})

	return r
}

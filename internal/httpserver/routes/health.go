package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/openfoundry/outreach/internal/httpserver/deps"
	"github.com/openfoundry/outreach/internal/httpserver/handlers"
	"github.com/openfoundry/outreach/internal/httpserver/mw"
)

func init() { Register(registerHealth) }

func registerHealth(r chi.Router, d deps.Deps) {
	cidrs := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(cidrs).Get("/healthz", handlers.Healthz(d))
	r.With(cidrs).Get("/readyz", handlers.Readyz(d))
}

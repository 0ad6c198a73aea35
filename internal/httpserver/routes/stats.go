package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/openfoundry/outreach/internal/httpserver/deps"
	"github.com/openfoundry/outreach/internal/httpserver/handlers"
	"github.com/openfoundry/outreach/internal/httpserver/mw"
)

func init() { Register(registerStats) }

func registerStats(r chi.Router, d deps.Deps) {
	r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	).Get("/api/stats", handlers.Stats(d))
}

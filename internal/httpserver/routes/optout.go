package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openfoundry/outreach/internal/httpserver/deps"
	"github.com/openfoundry/outreach/internal/httpserver/handlers"
	"github.com/openfoundry/outreach/internal/httpserver/mw"
)

func init() { Register(registerOptOut) }

// The opt-out endpoint is the only public surface, it gets a per-IP
// rate limit on top of the host check.
func registerOptOut(r chi.Router, d deps.Deps) {
	r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             5,
			RefillPerIPPerMin: 3,
			MaxEntries:        10_000,
			SweepInterval:     time.Minute,
			IdleTTL:           15 * time.Minute,
			TrustProxy:        d.TrustProxy,
		}),
	).Post("/api/opt-out", handlers.OptOut(d))
}

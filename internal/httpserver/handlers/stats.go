package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/openfoundry/outreach/internal/httpserver/deps"
	"github.com/openfoundry/outreach/internal/report"
)

// Stats returns the aggregated outreach report.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep := report.Build(d.Registry.Snapshot(), d.Now().UTC())

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(rep)
	}
}

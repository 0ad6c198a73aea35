package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/openfoundry/outreach/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz reports ready once the registry has loaded its data files.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := d.Registry != nil && d.Registry.Loaded()

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(readyzResponse{
			Ready: ready,
		})
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/openfoundry/outreach/internal/domain"
	"github.com/openfoundry/outreach/internal/httpserver/deps"
	"github.com/openfoundry/outreach/internal/logger"
)

type optOutRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

type optOutResponse struct {
	OptedOut bool   `json:"opted_out"`
	Email    string `json:"email"`
}

// OptOut permanently excludes an address from outreach. Accepts JSON or
// form bodies and is idempotent: opting out twice is still a 200.
func OptOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseOptOut(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		email := domain.NormalizeEmail(req.Email)
		if !domain.ValidEmail(email) {
			http.Error(w, "invalid email address", http.StatusBadRequest)
			return
		}

		added := d.Registry.AddOptOut(domain.OptOutEntry{
			Email:     email,
			Timestamp: d.Now().UTC(),
			Reason:    strings.TrimSpace(req.Reason),
			Source:    "web",
		})

		if added {
			// Opt-outs persist immediately, a crash must never resurrect
			// an unsubscribed address.
			if err := d.Store.SaveOptOuts(d.Registry.Export().OptOuts); err != nil {
				d.Logger.Error("failed to persist opt-out",
					logger.String("email", email),
					logger.Error(err))
				http.Error(w, "failed to record opt-out", http.StatusInternalServerError)
				return
			}
			d.Logger.Info("opt-out recorded",
				logger.String("email", email),
				logger.String("reason", req.Reason))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(optOutResponse{
			OptedOut: true,
			Email:    email,
		})
	}
}

func parseOptOut(r *http.Request) (optOutRequest, error) {
	var req optOutRequest

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errBadBody
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, errBadBody
	}
	req.Email = r.PostFormValue("email")
	req.Reason = r.PostFormValue("reason")
	return req, nil
}

var errBadBody = errors.New("malformed request body")

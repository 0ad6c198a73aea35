package handlers

import (
	"net/http"

	"github.com/openfoundry/outreach/internal/httpserver/deps"
	"github.com/openfoundry/outreach/internal/logger"
)

// Reload triggers a manual discovery run. Non-blocking: when a run is
// already pending the request is rejected with 429.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.DiscoveryTrigger <- struct{}{}:
			d.Logger.Info("manual discovery triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("discovery triggered\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("discovery already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("discovery already in progress, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}

package deps

import (
	"time"

	"github.com/openfoundry/outreach/internal/index"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/store/jsonfile"
)

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time // for testing, defaults to time.Now
	AllowedHosts     []string         // Host headers allowed to access the server
	AllowedCIDRS     []string         // IPs allowed to access the admin endpoints
	TrustProxy       bool             // true when running behind a trusted reverse proxy
	Registry         *index.Registry  // in-memory contact registry
	Store            *jsonfile.Store  // flat-file persistence
	DiscoveryTrigger chan struct{}    // channel to trigger a manual discovery run
}

// Now returns the injected clock, falling back to time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

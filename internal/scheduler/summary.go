package scheduler

import (
	"context"
	"time"

	"github.com/openfoundry/outreach/internal/domain"
	"github.com/openfoundry/outreach/internal/index"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/mailing"
	"github.com/openfoundry/outreach/internal/report"
)

// SummaryRunner mails a periodic activity digest to the operator.
type SummaryRunner struct {
	registry *index.Registry
	sender   mailing.Sender
	to       string
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSummaryRunner creates a new summary runner
func NewSummaryRunner(
	registry *index.Registry,
	sender mailing.Sender,
	to string,
	log logger.Logger,
	interval time.Duration,
) *SummaryRunner {
	return &SummaryRunner{
		registry: registry,
		sender:   sender,
		to:       to,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic summary process
func (sr *SummaryRunner) Start(ctx context.Context) error {
	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sr.Send(ctx); err != nil {
					sr.logger.Error("summary mail failed",
						logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the runner
func (sr *SummaryRunner) Stop() {
	close(sr.stopCh)
}

// Send builds the report over the current snapshot and mails it.
func (sr *SummaryRunner) Send(ctx context.Context) error {
	now := time.Now().UTC()
	rep := report.Build(sr.registry.Snapshot(), now)

	msg := mailing.Message{
		Subject:  "Outreach summary " + now.Format("2006-01-02"),
		Body:     rep.Summary(),
		Template: "operator_summary",
	}

	return sr.sender.Send(ctx, domain.Contact{Email: sr.to}, msg)
}

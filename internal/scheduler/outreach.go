package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openfoundry/outreach/internal/domain"
	"github.com/openfoundry/outreach/internal/index"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/mailing"
	"github.com/openfoundry/outreach/internal/store/jsonfile"
)

// Policy is the throttle configuration for outreach cycles.
type Policy struct {
	CooldownDays int
	MaxDaily     int
	MaxPerOrg    int
}

// Counters is the shared send-count store consulted by outreach cycles
// so multiple instances never overshoot the daily or per-organization
// caps together. The Redis-backed store implements it; a nil Counters
// means local counting only.
type Counters interface {
	IncrSent(ctx context.Context, asOf time.Time, org string) error
	SentOn(ctx context.Context, asOf time.Time) (int64, error)
	OrgSentOn(ctx context.Context, asOf time.Time, org string) (int64, error)
}

// OutreachRunner handles periodic outreach cycles: pick eligible
// contacts under the throttle policy, render, send, record, persist.
type OutreachRunner struct {
	registry  *index.Registry
	store     *jsonfile.Store
	counters  Counters // optional, nil = local counting only
	engine    *mailing.Engine
	sender    mailing.Sender
	policy    Policy
	sendDelay time.Duration
	logger    logger.Logger
	interval  time.Duration
	stopCh    chan struct{}
}

// NewOutreachRunner creates a new outreach runner
func NewOutreachRunner(
	registry *index.Registry,
	store *jsonfile.Store,
	counters Counters,
	engine *mailing.Engine,
	sender mailing.Sender,
	policy Policy,
	sendDelay time.Duration,
	log logger.Logger,
	interval time.Duration,
) *OutreachRunner {
	return &OutreachRunner{
		registry:  registry,
		store:     store,
		counters:  counters,
		engine:    engine,
		sender:    sender,
		policy:    policy,
		sendDelay: sendDelay,
		logger:    log,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic outreach process. Unlike discovery there is
// no immediate first run: cycles only happen on the tick, so a crash
// loop cannot burn the daily budget.
func (or *OutreachRunner) Start(ctx context.Context) error {
	ticker := time.NewTicker(or.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := or.Cycle(ctx); err != nil {
					or.logger.Error("outreach cycle failed",
						logger.Error(err))
				}
			case <-or.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the runner
func (or *OutreachRunner) Stop() {
	close(or.stopCh)
}

// Cycle runs one outreach pass.
func (or *OutreachRunner) Cycle(ctx context.Context) error {
	now := time.Now().UTC()

	budget := or.dailyBudget(ctx, now)
	if budget <= 0 {
		or.logger.Info("daily outreach budget exhausted, skipping cycle")
		return nil
	}

	snap := or.registry.Snapshot()
	candidates := make([]domain.Candidate, 0, len(snap.Contacts))
	for _, c := range snap.Contacts {
		if c.Organization == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Contact:      c,
			Organization: c.Organization,
		})
	}
	// Map iteration order is random; fix it so selection is stable
	// across cycles.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Organization != candidates[j].Organization {
			return candidates[i].Organization < candidates[j].Organization
		}
		return candidates[i].Contact.Email < candidates[j].Contact.Email
	})

	eligible, err := domain.SelectEligible(snap, candidates, now,
		or.policy.CooldownDays, budget, or.policy.MaxPerOrg)
	if err != nil {
		return fmt.Errorf("eligibility selection: %w", err)
	}

	if len(eligible) == 0 {
		or.logger.Info("no eligible contacts this cycle")
		return nil
	}

	or.logger.Info("outreach cycle started",
		logger.Int("eligible", len(eligible)),
		logger.Int("budget", budget))

	sent, failed := 0, 0
	orgShared := make(map[string]int)
	orgSentHere := make(map[string]int)
	first := true
	for _, cand := range eligible {
		// Other instances may already have messaged this organization
		// today; their sends count against the per-org cap too.
		if or.counters != nil {
			shared, ok := orgShared[cand.Organization]
			if !ok {
				n, err := or.counters.OrgSentOn(ctx, now, cand.Organization)
				if err != nil {
					or.logger.Warn("failed to read shared org counter",
						logger.String("org", cand.Organization),
						logger.Error(err))
				} else {
					shared = int(n)
				}
				orgShared[cand.Organization] = shared
			}
			if shared+orgSentHere[cand.Organization] >= or.policy.MaxPerOrg {
				or.logger.Info("per-organization cap already reached elsewhere",
					logger.String("org", cand.Organization))
				continue
			}
		}
		if !first {
			if err := sleepCtx(ctx, or.sendDelay); err != nil {
				break
			}
		}
		first = false
		if or.sendOne(ctx, *cand.Contact) {
			sent++
			orgSentHere[cand.Organization]++
		} else {
			failed++
		}
	}

	if err := or.store.Save(or.registry.Export()); err != nil {
		return fmt.Errorf("failed to persist after cycle: %w", err)
	}

	or.logger.Info("outreach cycle completed",
		logger.Int("sent", sent),
		logger.Int("failed", failed))

	return nil
}

// sendOne renders and delivers one message, recording the outcome
// either way. Returns true on a successful send.
func (or *OutreachRunner) sendOne(ctx context.Context, contact domain.Contact) bool {
	rec := domain.OutreachRecord{
		ID:           uuid.NewString(),
		ContactEmail: contact.Email,
		Organization: contact.Organization,
		Timestamp:    time.Now().UTC(),
	}

	msg, err := or.engine.Render(contact)
	if err != nil {
		or.logger.Warn("render failed",
			logger.String("to", contact.Email),
			logger.Error(err))
		rec.Outcome = domain.OutcomeFailed
		rec.Error = err.Error()
		or.registry.RecordSend(rec)
		return false
	}
	rec.Template = msg.Template

	if err := or.sender.Send(ctx, contact, msg); err != nil {
		or.logger.Warn("send failed",
			logger.String("to", contact.Email),
			logger.Error(err))
		rec.Outcome = domain.OutcomeFailed
		rec.Error = err.Error()
		or.registry.RecordSend(rec)
		return false
	}

	rec.Outcome = domain.OutcomeSent
	or.registry.RecordSend(rec)

	// Shared counters are best effort, the registry stays authoritative.
	if or.counters != nil {
		if err := or.counters.IncrSent(ctx, rec.Timestamp, contact.Organization); err != nil {
			or.logger.Warn("failed to increment shared counters",
				logger.Error(err))
		}
	}

	or.logger.Info("message sent",
		logger.String("to", contact.Email),
		logger.String("org", contact.Organization),
		logger.String("template", msg.Template))

	return true
}

// dailyBudget returns how many sends remain for the current UTC day.
// When shared counters are available the higher of local and shared
// counts wins, so multiple instances never overshoot together.
func (or *OutreachRunner) dailyBudget(ctx context.Context, now time.Time) int {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	used := or.registry.SentSince(midnight)

	if or.counters != nil {
		shared, err := or.counters.SentOn(ctx, now)
		if err != nil {
			or.logger.Warn("failed to read shared counters",
				logger.Error(err))
		} else if int(shared) > used {
			used = int(shared)
		}
	}

	return or.policy.MaxDaily - used
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

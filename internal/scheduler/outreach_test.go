package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/openfoundry/outreach/internal/domain"
	"github.com/openfoundry/outreach/internal/index"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/mailing"
	"github.com/openfoundry/outreach/internal/store/jsonfile"
)

// fakeSender records deliveries and fails addresses listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (f *fakeSender) Send(_ context.Context, to domain.Contact, _ mailing.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to.Email] {
		return errors.New("relay refused")
	}
	f.sent = append(f.sent, to.Email)
	return nil
}

// fakeCounters stands in for the Redis store, pre-seeded with sends
// made by other instances.
type fakeCounters struct {
	mu    sync.Mutex
	daily int64
	byOrg map[string]int64
}

func (f *fakeCounters) IncrSent(_ context.Context, _ time.Time, org string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.daily++
	if org != "" {
		if f.byOrg == nil {
			f.byOrg = map[string]int64{}
		}
		f.byOrg[org]++
	}
	return nil
}

func (f *fakeCounters) SentOn(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.daily, nil
}

func (f *fakeCounters) OrgSentOn(_ context.Context, _ time.Time, org string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byOrg[org], nil
}

func testRegistry(t *testing.T) *index.Registry {
	t.Helper()
	reg := index.NewRegistry()
	reg.Load(index.Collections{})

	seen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range []domain.Contact{
		{Email: "a1@techweekly.io", Name: "Ann", Organization: "Tech Weekly", Category: domain.CategoryPublication, FirstSeenAt: seen},
		{Email: "a2@techweekly.io", Name: "Amy", Organization: "Tech Weekly", Category: domain.CategoryPublication, FirstSeenAt: seen.Add(time.Hour)},
		{Email: "b1@devforum.net", Name: "Bob", Organization: "Dev Forum", Category: domain.CategoryCommunity, FirstSeenAt: seen},
	} {
		reg.UpsertContact(c)
	}
	return reg
}

func newRunner(t *testing.T, reg *index.Registry, sender mailing.Sender, policy Policy) (*OutreachRunner, string) {
	t.Helper()
	return newSharedRunner(t, reg, sender, nil, policy)
}

func newSharedRunner(t *testing.T, reg *index.Registry, sender mailing.Sender, counters Counters, policy Policy) (*OutreachRunner, string) {
	t.Helper()
	dir := t.TempDir()
	store := jsonfile.New(dir)
	engine := mailing.NewEngine("Alex", "")
	log := logger.New("error", false)
	return NewOutreachRunner(reg, store, counters, engine, sender, policy, 0, log, time.Hour), dir
}

func TestCycleRespectsPerOrgCap(t *testing.T) {
	reg := testRegistry(t)
	sender := &fakeSender{}
	runner, dir := newRunner(t, reg, sender, Policy{CooldownDays: 30, MaxDaily: 50, MaxPerOrg: 1})

	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent = %v, want one per organization", sender.sent)
	}
	got := map[string]bool{}
	for _, e := range sender.sent {
		got[e] = true
	}
	// a1 wins the Tech Weekly slot (earliest first seen).
	if !got["a1@techweekly.io"] || !got["b1@devforum.net"] {
		t.Errorf("sent = %v, want a1 and b1", sender.sent)
	}

	if n := reg.SentSince(time.Time{}); n != 2 {
		t.Errorf("recorded sends = %d, want 2", n)
	}

	// Cycle persists the registry.
	if _, err := os.Stat(filepath.Join(dir, "outreach_log.json")); err != nil {
		t.Errorf("outreach log not persisted: %v", err)
	}
}

func TestCycleBudgetExhausted(t *testing.T) {
	reg := testRegistry(t)
	sender := &fakeSender{}
	runner, _ := newRunner(t, reg, sender, Policy{CooldownDays: 0, MaxDaily: 2, MaxPerOrg: 5})

	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("first Cycle() error = %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent = %v, want 2 (daily cap)", sender.sent)
	}

	// Same day: the budget is spent, nothing more goes out even with
	// cooldown disabled.
	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("second Cycle() error = %v", err)
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent = %v, second cycle must be a no-op", sender.sent)
	}
}

func TestCycleSharedOrgCountsHoldPerOrgCap(t *testing.T) {
	// Another instance already messaged Tech Weekly once today, so with
	// MaxPerOrg 1 its local candidates must be skipped.
	reg := testRegistry(t)
	sender := &fakeSender{}
	counters := &fakeCounters{daily: 1, byOrg: map[string]int64{"Tech Weekly": 1}}
	runner, _ := newSharedRunner(t, reg, sender, counters, Policy{CooldownDays: 30, MaxDaily: 50, MaxPerOrg: 1})

	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}

	if len(sender.sent) != 1 || sender.sent[0] != "b1@devforum.net" {
		t.Fatalf("sent = %v, want only b1@devforum.net", sender.sent)
	}

	// The successful send lands in the shared counters too.
	if counters.daily != 2 {
		t.Errorf("shared daily count = %d, want 2", counters.daily)
	}
	if counters.byOrg["Dev Forum"] != 1 {
		t.Errorf("shared Dev Forum count = %d, want 1", counters.byOrg["Dev Forum"])
	}
}

func TestCycleSharedDailyCountExhaustsBudget(t *testing.T) {
	reg := testRegistry(t)
	sender := &fakeSender{}
	counters := &fakeCounters{daily: 2}
	runner, _ := newSharedRunner(t, reg, sender, counters, Policy{CooldownDays: 30, MaxDaily: 2, MaxPerOrg: 5})

	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %v, want none with the shared budget spent", sender.sent)
	}
}

func TestCycleCooldownExcludesContacted(t *testing.T) {
	reg := testRegistry(t)
	sender := &fakeSender{}
	runner, _ := newRunner(t, reg, sender, Policy{CooldownDays: 30, MaxDaily: 50, MaxPerOrg: 5})

	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("first Cycle() error = %v", err)
	}
	if len(sender.sent) != 3 {
		t.Fatalf("sent = %v, want all 3", sender.sent)
	}

	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("second Cycle() error = %v", err)
	}
	if len(sender.sent) != 3 {
		t.Errorf("sent = %v, everyone is inside the cooldown window", sender.sent)
	}
}

func TestCycleRecordsFailures(t *testing.T) {
	reg := testRegistry(t)
	sender := &fakeSender{failFor: map[string]bool{"a1@techweekly.io": true}}
	runner, _ := newRunner(t, reg, sender, Policy{CooldownDays: 30, MaxDaily: 50, MaxPerOrg: 5})

	if err := runner.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}

	snap := reg.Snapshot()
	var failed *domain.OutreachRecord
	for i := range snap.Records {
		if snap.Records[i].ContactEmail == "a1@techweekly.io" {
			failed = &snap.Records[i]
		}
	}
	if failed == nil {
		t.Fatal("no record for the failed send")
	}
	if failed.Outcome != domain.OutcomeFailed || failed.Error == "" {
		t.Errorf("record = %+v, want failed outcome with error", failed)
	}

	// A failed send must not advance the contact's cooldown.
	if c := snap.Contacts["a1@techweekly.io"]; !c.LastContactedAt.IsZero() {
		t.Errorf("LastContactedAt = %v, want zero after failure", c.LastContactedAt)
	}
}

package index

import (
	"testing"
	"time"

	"github.com/openfoundry/outreach/internal/domain"
)

func TestRegistry_UpsertContactMergesOnRediscovery(t *testing.T) {
	reg := NewRegistry()
	t0 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	isNew := reg.UpsertContact(domain.Contact{
		Email:        "Jane@TechCrunch.com",
		Name:         "Jane Doe",
		Organization: "TechCrunch",
		Category:     domain.CategoryPublication,
		FirstSeenAt:  t0,
	})
	if !isNew {
		t.Error("first discovery should report new contact")
	}

	// Re-discovery with a later first-seen must merge, not duplicate.
	isNew = reg.UpsertContact(domain.Contact{
		Email:        "jane@techcrunch.com",
		Organization: "TechCrunch",
		Category:     domain.CategoryPublication,
		FirstSeenAt:  t0.Add(48 * time.Hour),
		Source:       "https://techcrunch.com/staff",
	})
	if isNew {
		t.Error("re-discovery should merge into the existing record")
	}

	if reg.ContactCount() != 1 {
		t.Fatalf("ContactCount() = %d, want 1", reg.ContactCount())
	}

	snap := reg.Snapshot()
	c := snap.Contacts["jane@techcrunch.com"]
	if c == nil {
		t.Fatal("contact not found under normalized email")
	}
	if !c.FirstSeenAt.Equal(t0) {
		t.Errorf("FirstSeenAt regressed: %v", c.FirstSeenAt)
	}
	if c.Source != "https://techcrunch.com/staff" {
		t.Errorf("Source not refreshed: %q", c.Source)
	}

	org := snap.Organizations["TechCrunch"]
	if org == nil || !org.HasMember("jane@techcrunch.com") {
		t.Error("organization membership not maintained")
	}
}

func TestRegistry_RecordSendMaintainsInvariants(t *testing.T) {
	reg := NewRegistry()
	t0 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	reg.UpsertContact(domain.Contact{
		Email:        "jane@techcrunch.com",
		Organization: "TechCrunch",
		FirstSeenAt:  t0,
	})

	sentAt := t0.Add(24 * time.Hour)
	reg.RecordSend(domain.OutreachRecord{
		ID:           "r1",
		ContactEmail: "jane@techcrunch.com",
		Organization: "TechCrunch",
		Timestamp:    sentAt,
		Template:     "publication",
		Outcome:      domain.OutcomeSent,
	})
	reg.RecordSend(domain.OutreachRecord{
		ID:           "r2",
		ContactEmail: "jane@techcrunch.com",
		Organization: "TechCrunch",
		Timestamp:    sentAt.Add(time.Hour),
		Template:     "publication",
		Outcome:      domain.OutcomeFailed,
		Error:        "smtp timeout",
	})

	snap := reg.Snapshot()
	c := snap.Contacts["jane@techcrunch.com"]

	// TimesContacted counts sent outcomes only.
	if c.TimesContacted != 1 {
		t.Errorf("TimesContacted = %d, want 1", c.TimesContacted)
	}
	// LastContactedAt equals the most recent sent record.
	if !c.LastContactedAt.Equal(sentAt) {
		t.Errorf("LastContactedAt = %v, want %v", c.LastContactedAt, sentAt)
	}
	if len(snap.Records) != 2 {
		t.Errorf("records = %d, want 2 (failed attempts are logged too)", len(snap.Records))
	}
}

func TestRegistry_SentSince(t *testing.T) {
	reg := NewRegistry()
	now := time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC)
	midnight := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	reg.RecordSend(domain.OutreachRecord{ID: "old", Timestamp: midnight.Add(-2 * time.Hour), Outcome: domain.OutcomeSent})
	reg.RecordSend(domain.OutreachRecord{ID: "today-1", Timestamp: midnight.Add(9 * time.Hour), Outcome: domain.OutcomeSent})
	reg.RecordSend(domain.OutreachRecord{ID: "today-2", Timestamp: now, Outcome: domain.OutcomeSent})
	reg.RecordSend(domain.OutreachRecord{ID: "today-failed", Timestamp: now, Outcome: domain.OutcomeFailed})

	if got := reg.SentSince(midnight); got != 2 {
		t.Errorf("SentSince(midnight) = %d, want 2", got)
	}
}

func TestRegistry_AddOptOutIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	first := domain.OptOutEntry{
		Email:     "Jane@TechCrunch.com",
		Timestamp: time.Now(),
		Reason:    "too frequent",
	}

	if !reg.AddOptOut(first) {
		t.Error("first AddOptOut should succeed")
	}
	if reg.AddOptOut(domain.OptOutEntry{Email: "jane@techcrunch.com", Reason: "again"}) {
		t.Error("second AddOptOut for the same email should report already opted out")
	}
	if !reg.IsOptedOut("JANE@techcrunch.com") {
		t.Error("IsOptedOut must be case-insensitive")
	}

	// Original entry is preserved.
	snap := reg.Snapshot()
	if e := snap.OptOuts["jane@techcrunch.com"]; e.Reason != "too frequent" {
		t.Errorf("original opt-out entry replaced: %+v", e)
	}
}

func TestRegistry_PruneRecords(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	reg.RecordSend(domain.OutreachRecord{ID: "ancient", Timestamp: now.Add(-100 * 24 * time.Hour), Outcome: domain.OutcomeSent})
	reg.RecordSend(domain.OutreachRecord{ID: "recent", Timestamp: now.Add(-time.Hour), Outcome: domain.OutcomeSent})

	removed := reg.PruneRecords(now.Add(-90 * 24 * time.Hour))
	if removed != 1 {
		t.Errorf("PruneRecords() removed %d, want 1", removed)
	}

	snap := reg.Snapshot()
	if len(snap.Records) != 1 || snap.Records[0].ID != "recent" {
		t.Errorf("unexpected surviving records: %+v", snap.Records)
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	reg := NewRegistry()
	reg.UpsertContact(domain.Contact{
		Email:        "jane@techcrunch.com",
		Organization: "TechCrunch",
		FirstSeenAt:  time.Now(),
	})

	snap := reg.Snapshot()
	snap.Contacts["jane@techcrunch.com"].TimesContacted = 99

	fresh := reg.Snapshot()
	if fresh.Contacts["jane@techcrunch.com"].TimesContacted != 0 {
		t.Error("mutating a snapshot must not leak into the registry")
	}
}

func TestRegistry_LoadExportRoundTrip(t *testing.T) {
	reg := NewRegistry()
	if reg.Loaded() {
		t.Error("fresh registry should not report loaded")
	}

	reg.Load(Collections{
		Contacts: []domain.Contact{
			{Email: "Jane@TechCrunch.com", Organization: "TechCrunch", FirstSeenAt: time.Now()},
		},
		Organizations: []domain.Organization{
			{Name: "TechCrunch", Category: domain.CategoryPublication, Members: []string{"jane@techcrunch.com"}},
		},
		OptOuts: []domain.OptOutEntry{
			{Email: "Gone@Y.com", Timestamp: time.Now()},
		},
		Records: []domain.OutreachRecord{
			{ID: "r1", ContactEmail: "jane@techcrunch.com", Outcome: domain.OutcomeSent, Timestamp: time.Now()},
		},
	})

	if !reg.Loaded() {
		t.Error("registry should report loaded after Load")
	}
	if !reg.IsOptedOut("gone@y.com") {
		t.Error("opt-outs not normalized on load")
	}

	out := reg.Export()
	if len(out.Contacts) != 1 || len(out.Organizations) != 1 || len(out.OptOuts) != 1 || len(out.Records) != 1 {
		t.Errorf("export lost data: %+v", out)
	}
	if out.Contacts[0].Email != "jane@techcrunch.com" {
		t.Errorf("contact email not normalized: %q", out.Contacts[0].Email)
	}
}

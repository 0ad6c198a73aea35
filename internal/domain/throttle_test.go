package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func contact(email, org string, firstSeen time.Time) *Contact {
	return &Contact{
		Email:        email,
		Organization: org,
		FirstSeenAt:  firstSeen,
	}
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Contacts:      map[string]*Contact{},
		Organizations: map[string]*Organization{},
		OptOuts:       map[string]OptOutEntry{},
	}
}

func emails(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Contact.Email)
	}
	return out
}

func TestSelectEligible_OldestFirstSeenWinsPerOrgSlot(t *testing.T) {
	// Scenario: two contacts in the same organization, one per-org slot.
	a := contact("a@x.com", "OrgA", baseTime.Add(-48*time.Hour))
	b := contact("b@x.com", "OrgA", baseTime.Add(-24*time.Hour))

	got, err := SelectEligible(emptySnapshot(), []Candidate{
		{Contact: a, Organization: "OrgA"},
		{Contact: b, Organization: "OrgA"},
	}, baseTime, 30, 10, 1)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}

	if want := []string{"a@x.com"}; !reflect.DeepEqual(emails(got), want) {
		t.Errorf("SelectEligible() = %v, want %v", emails(got), want)
	}
}

func TestSelectEligible_CooldownExcludesRecentlyContacted(t *testing.T) {
	a := contact("a@x.com", "OrgA", baseTime.Add(-48*time.Hour))
	a.LastContactedAt = baseTime.Add(-5 * 24 * time.Hour)
	a.TimesContacted = 1
	b := contact("b@x.com", "OrgA", baseTime.Add(-24*time.Hour))

	got, err := SelectEligible(emptySnapshot(), []Candidate{
		{Contact: a, Organization: "OrgA"},
		{Contact: b, Organization: "OrgA"},
	}, baseTime, 30, 10, 1)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}

	if want := []string{"b@x.com"}; !reflect.DeepEqual(emails(got), want) {
		t.Errorf("SelectEligible() = %v, want %v", emails(got), want)
	}
}

func TestSelectEligible_CooldownBoundaryIsEligible(t *testing.T) {
	// asOf - lastContacted == cooldown must pass (strict < excludes).
	a := contact("a@x.com", "OrgA", baseTime.Add(-90*24*time.Hour))
	a.LastContactedAt = baseTime.Add(-30 * 24 * time.Hour)
	a.TimesContacted = 1

	got, err := SelectEligible(emptySnapshot(), []Candidate{
		{Contact: a, Organization: "OrgA"},
	}, baseTime, 30, 10, 10)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("contact exactly at cooldown boundary should be eligible, got %v", emails(got))
	}
}

func TestSelectEligible_OptOutAlwaysExcluded(t *testing.T) {
	snap := emptySnapshot()
	snap.OptOuts["c@y.com"] = OptOutEntry{Email: "c@y.com", Timestamp: baseTime}

	c := contact("c@y.com", "OrgB", baseTime.Add(-72*time.Hour))

	tests := []struct {
		name         string
		cooldownDays int
		maxDaily     int
		maxPerOrg    int
	}{
		{name: "generous caps", cooldownDays: 0, maxDaily: 100, maxPerOrg: 100},
		{name: "tight caps", cooldownDays: 30, maxDaily: 1, maxPerOrg: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectEligible(snap, []Candidate{
				{Contact: c, Organization: "OrgB"},
			}, baseTime, tt.cooldownDays, tt.maxDaily, tt.maxPerOrg)
			if err != nil {
				t.Fatalf("SelectEligible() error = %v", err)
			}
			for _, sel := range got {
				if sel.Contact.Email == "c@y.com" {
					t.Error("opted-out contact must never appear in output")
				}
			}
		})
	}
}

func TestSelectEligible_FilteredCandidateKeepsOrgSlotOrder(t *testing.T) {
	// OrgA appears first in the input but its first candidate is opted
	// out. OrgA must still claim the first global slot through its
	// surviving candidate.
	snap := emptySnapshot()
	snap.OptOuts["opted@a.com"] = OptOutEntry{Email: "opted@a.com", Timestamp: baseTime}

	cands := []Candidate{
		{Contact: contact("opted@a.com", "OrgA", baseTime.Add(-3*time.Hour)), Organization: "OrgA"},
		{Contact: contact("x@b.com", "OrgB", baseTime.Add(-2*time.Hour)), Organization: "OrgB"},
		{Contact: contact("y@a.com", "OrgA", baseTime.Add(-1*time.Hour)), Organization: "OrgA"},
	}

	got, err := SelectEligible(snap, cands, baseTime, 30, 1, 10)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}

	if want := []string{"y@a.com"}; !reflect.DeepEqual(emails(got), want) {
		t.Errorf("SelectEligible() = %v, want %v", emails(got), want)
	}
}

func TestSelectEligible_CapsAcrossOrganizations(t *testing.T) {
	// 5 candidates across 3 organizations, maxDaily=3, maxPerOrg=2.
	cands := []Candidate{
		{Contact: contact("a1@a.com", "OrgA", baseTime.Add(-5*time.Hour)), Organization: "OrgA"},
		{Contact: contact("a2@a.com", "OrgA", baseTime.Add(-4*time.Hour)), Organization: "OrgA"},
		{Contact: contact("a3@a.com", "OrgA", baseTime.Add(-3*time.Hour)), Organization: "OrgA"},
		{Contact: contact("b1@b.com", "OrgB", baseTime.Add(-2*time.Hour)), Organization: "OrgB"},
		{Contact: contact("c1@c.com", "OrgC", baseTime.Add(-1*time.Hour)), Organization: "OrgC"},
	}

	got, err := SelectEligible(emptySnapshot(), cands, baseTime, 30, 3, 2)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected exactly 3 selections, got %d", len(got))
	}

	perOrg := map[string]int{}
	for _, c := range got {
		perOrg[c.Organization]++
		if perOrg[c.Organization] > 2 {
			t.Errorf("organization %s exceeds per-org cap", c.Organization)
		}
	}

	// Earliest first-seen within OrgA, then organizations in input order.
	if want := []string{"a1@a.com", "a2@a.com", "b1@b.com"}; !reflect.DeepEqual(emails(got), want) {
		t.Errorf("SelectEligible() = %v, want %v", emails(got), want)
	}
}

func TestSelectEligible_Deterministic(t *testing.T) {
	cands := []Candidate{
		{Contact: contact("z@a.com", "OrgA", baseTime.Add(-1*time.Hour)), Organization: "OrgA"},
		{Contact: contact("a@a.com", "OrgA", baseTime.Add(-1*time.Hour)), Organization: "OrgA"},
		{Contact: contact("m@b.com", "OrgB", baseTime.Add(-9*time.Hour)), Organization: "OrgB"},
	}

	first, err := SelectEligible(emptySnapshot(), cands, baseTime, 7, 2, 1)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}
	second, err := SelectEligible(emptySnapshot(), cands, baseTime, 7, 2, 1)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}

	if !reflect.DeepEqual(emails(first), emails(second)) {
		t.Errorf("identical inputs produced different output: %v vs %v", emails(first), emails(second))
	}

	// Identical FirstSeenAt ties break on email for determinism.
	if first[0].Contact.Email != "a@a.com" {
		t.Errorf("tie-break should pick lowest email, got %s", first[0].Contact.Email)
	}
}

func TestSelectEligible_InvalidParameters(t *testing.T) {
	c := contact("a@x.com", "OrgA", baseTime)

	tests := []struct {
		name         string
		candidates   []Candidate
		cooldownDays int
		maxDaily     int
		maxPerOrg    int
	}{
		{
			name:         "negative maxDaily",
			candidates:   []Candidate{{Contact: c, Organization: "OrgA"}},
			cooldownDays: 30, maxDaily: -1, maxPerOrg: 4,
		},
		{
			name:         "negative maxPerOrganization",
			candidates:   []Candidate{{Contact: c, Organization: "OrgA"}},
			cooldownDays: 30, maxDaily: 50, maxPerOrg: -2,
		},
		{
			name:         "negative cooldown",
			candidates:   []Candidate{{Contact: c, Organization: "OrgA"}},
			cooldownDays: -1, maxDaily: 50, maxPerOrg: 4,
		},
		{
			name: "duplicate pair",
			candidates: []Candidate{
				{Contact: c, Organization: "OrgA"},
				{Contact: contact("A@X.com", "OrgA", baseTime), Organization: "OrgA"},
			},
			cooldownDays: 30, maxDaily: 50, maxPerOrg: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectEligible(emptySnapshot(), tt.candidates, baseTime, tt.cooldownDays, tt.maxDaily, tt.maxPerOrg)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
			if got != nil {
				t.Errorf("expected no partial output on error, got %v", emails(got))
			}
		})
	}
}

func TestSelectEligible_ZeroCapsYieldEmptyOutput(t *testing.T) {
	cands := []Candidate{
		{Contact: contact("a@x.com", "OrgA", baseTime), Organization: "OrgA"},
	}

	got, err := SelectEligible(emptySnapshot(), cands, baseTime, 0, 0, 5)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("maxDaily=0 must yield empty output, got %v", emails(got))
	}

	got, err = SelectEligible(emptySnapshot(), cands, baseTime, 0, 5, 0)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("maxPerOrganization=0 must yield empty output, got %v", emails(got))
	}
}

func TestSelectEligible_EmptyCandidates(t *testing.T) {
	got, err := SelectEligible(emptySnapshot(), nil, baseTime, 30, 50, 4)
	if err != nil {
		t.Fatalf("SelectEligible() with no candidates should not error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty output, got %v", emails(got))
	}
}

func TestSelectEligible_ZeroCooldownAllowsJustContacted(t *testing.T) {
	a := contact("a@x.com", "OrgA", baseTime.Add(-time.Hour))
	a.LastContactedAt = baseTime
	a.TimesContacted = 3

	got, err := SelectEligible(emptySnapshot(), []Candidate{
		{Contact: a, Organization: "OrgA"},
	}, baseTime, 0, 10, 10)
	if err != nil {
		t.Fatalf("SelectEligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Error("cooldownDays=0 should not exclude previously contacted contacts")
	}
}

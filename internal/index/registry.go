package index

import (
	"sync"
	"time"

	"github.com/openfoundry/outreach/internal/domain"
)

// Registry is the in-memory source of truth for contacts, organizations,
// opt-outs and the send log. It is loaded wholesale from the flat JSON
// store at startup and exported wholesale after each mutation cycle.
// All access is guarded; snapshots handed out are copies.
type Registry struct {
	mu            sync.RWMutex
	contacts      map[string]*domain.Contact      // normalized email -> contact
	organizations map[string]*domain.Organization // name -> organization
	optOuts       map[string]domain.OptOutEntry   // normalized email -> entry
	records       []domain.OutreachRecord
	loadedAt      time.Time
}

// Collections is the wholesale load/export unit exchanged with the
// persistence layer: one slice per flat JSON document.
type Collections struct {
	Contacts      []domain.Contact
	Organizations []domain.Organization
	OptOuts       []domain.OptOutEntry
	Records       []domain.OutreachRecord
}

func NewRegistry() *Registry {
	return &Registry{
		contacts:      make(map[string]*domain.Contact),
		organizations: make(map[string]*domain.Organization),
		optOuts:       make(map[string]domain.OptOutEntry),
	}
}

// Load replaces the whole registry content with cols.
func (r *Registry) Load(cols Collections) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contacts = make(map[string]*domain.Contact, len(cols.Contacts))
	for i := range cols.Contacts {
		c := cols.Contacts[i]
		c.Email = domain.NormalizeEmail(c.Email)
		r.contacts[c.Email] = &c
	}

	r.organizations = make(map[string]*domain.Organization, len(cols.Organizations))
	for i := range cols.Organizations {
		o := cols.Organizations[i]
		r.organizations[o.Name] = &o
	}

	r.optOuts = make(map[string]domain.OptOutEntry, len(cols.OptOuts))
	for _, e := range cols.OptOuts {
		e.Email = domain.NormalizeEmail(e.Email)
		r.optOuts[e.Email] = e
	}

	r.records = append([]domain.OutreachRecord(nil), cols.Records...)
	r.loadedAt = time.Now()
}

// Loaded reports whether the registry has been populated at least once.
// Used by the readiness probe.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.loadedAt.IsZero()
}

// UpsertContact merges a discovered contact into the registry and keeps
// organization membership in sync. Returns true when the contact was new.
func (r *Registry) UpsertContact(c domain.Contact) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.Email = domain.NormalizeEmail(c.Email)

	existing, ok := r.contacts[c.Email]
	if ok {
		merged := domain.Merge(*existing, c)
		r.contacts[c.Email] = &merged
		r.addMemberLocked(merged.Organization, merged.Category, c.Email)
		return false
	}

	r.contacts[c.Email] = &c
	r.addMemberLocked(c.Organization, c.Category, c.Email)
	return true
}

func (r *Registry) addMemberLocked(orgName string, category domain.Category, email string) {
	if orgName == "" {
		return
	}
	org, ok := r.organizations[orgName]
	if !ok {
		org = &domain.Organization{Name: orgName, Category: category}
		r.organizations[orgName] = org
	}
	if !org.HasMember(email) {
		org.Members = append(org.Members, email)
	}
}

// UpsertOrganization creates or refreshes an organization definition,
// preserving membership and scrape state on refresh.
func (r *Registry) UpsertOrganization(o domain.Organization) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.organizations[o.Name]
	if !ok {
		r.organizations[o.Name] = &o
		return
	}
	existing.Category = o.Category
	existing.Website = o.Website
	existing.Priority = o.Priority
}

// MarkScraped stamps the organization's last discovery pass.
func (r *Registry) MarkScraped(orgName string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if org, ok := r.organizations[orgName]; ok {
		org.LastScrapedAt = at
	}
}

// AddOptOut appends a permanent opt-out entry. Returns false when the
// email was already opted out (the original entry is kept).
func (r *Registry) AddOptOut(e domain.OptOutEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.Email = domain.NormalizeEmail(e.Email)
	if _, ok := r.optOuts[e.Email]; ok {
		return false
	}
	r.optOuts[e.Email] = e
	return true
}

// IsOptedOut reports whether email is permanently excluded.
func (r *Registry) IsOptedOut(email string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.optOuts[domain.NormalizeEmail(email)]
	return ok
}

// RecordSend appends an outreach record and, for a sent outcome, advances
// the contact's LastContactedAt and TimesContacted so the derived-state
// invariants hold.
func (r *Registry) RecordSend(rec domain.OutreachRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ContactEmail = domain.NormalizeEmail(rec.ContactEmail)
	r.records = append(r.records, rec)

	if rec.Outcome != domain.OutcomeSent {
		return
	}
	if c, ok := r.contacts[rec.ContactEmail]; ok {
		if rec.Timestamp.After(c.LastContactedAt) {
			c.LastContactedAt = rec.Timestamp
		}
		c.TimesContacted++
	}
}

// SentSince counts records with a sent outcome at or after cutoff.
// The outreach cycle uses it to derive the remaining daily budget.
func (r *Registry) SentSince(cutoff time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.records {
		if rec.Outcome == domain.OutcomeSent && !rec.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// PruneRecords drops outreach records older than cutoff and returns how
// many were removed. Storage hygiene only; contact state is untouched.
func (r *Registry) PruneRecords(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	removed := 0
	for _, rec := range r.records {
		if rec.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed
}

// Snapshot returns a copy of the registry for throttle and report use.
// The copy is safe to read without holding the registry lock.
func (r *Registry) Snapshot() *domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := &domain.Snapshot{
		Contacts:      make(map[string]*domain.Contact, len(r.contacts)),
		Organizations: make(map[string]*domain.Organization, len(r.organizations)),
		OptOuts:       make(map[string]domain.OptOutEntry, len(r.optOuts)),
		Records:       append([]domain.OutreachRecord(nil), r.records...),
	}
	for email, c := range r.contacts {
		cc := *c
		snap.Contacts[email] = &cc
	}
	for name, o := range r.organizations {
		oo := *o
		oo.Members = append([]string(nil), o.Members...)
		snap.Organizations[name] = &oo
	}
	for email, e := range r.optOuts {
		snap.OptOuts[email] = e
	}
	return snap
}

// Export returns the registry content in persistence form.
func (r *Registry) Export() Collections {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cols := Collections{
		Contacts:      make([]domain.Contact, 0, len(r.contacts)),
		Organizations: make([]domain.Organization, 0, len(r.organizations)),
		OptOuts:       make([]domain.OptOutEntry, 0, len(r.optOuts)),
		Records:       append([]domain.OutreachRecord(nil), r.records...),
	}
	for _, c := range r.contacts {
		cols.Contacts = append(cols.Contacts, *c)
	}
	for _, o := range r.organizations {
		oo := *o
		oo.Members = append([]string(nil), o.Members...)
		cols.Organizations = append(cols.Organizations, oo)
	}
	for _, e := range r.optOuts {
		cols.OptOuts = append(cols.OptOuts, e)
	}
	return cols
}

// ContactCount returns the number of tracked contacts.
func (r *Registry) ContactCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contacts)
}

// OrganizationCount returns the number of tracked organizations.
func (r *Registry) OrganizationCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.organizations)
}

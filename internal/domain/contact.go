package domain

import "time"

// Category classifies an organization for template selection.
type Category string

const (
	CategoryPublication Category = "publication"
	CategoryCommunity   Category = "community"
	CategoryPlatform    Category = "platform"
	CategoryInfluencer  Category = "influencer"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryPublication, CategoryCommunity, CategoryPlatform, CategoryInfluencer:
		return true
	}
	return false
}

// Contact is the unit of outreach: a single email address plus the
// metadata gathered around it.
//
// A Contact is uniquely identified by its normalized (lowercased) email
// across the whole system. Re-discovery merges into the existing record
// instead of duplicating it (see Merge).
type Contact struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// Email is the canonical unique identifier, always stored lowercased.
	Email string `json:"email"`

	// ─────────────────────────────
	// Discovery metadata
	// (may be overwritten by re-discovery)
	// ─────────────────────────────

	// Name is the display name, empty when unknown.
	Name string `json:"name,omitempty"`

	// Organization is the owning organization's name.
	// On re-discovery under a different organization the last writer wins.
	Organization string `json:"organization"`

	// Role is the position extracted from the contact page, if any.
	Role string `json:"role,omitempty"`

	// Source is the URL the contact was discovered on.
	Source string `json:"source,omitempty"`

	// Category mirrors the owning organization's category.
	Category Category `json:"category"`

	// FirstSeenAt is the first discovery time. It never regresses.
	FirstSeenAt time.Time `json:"first_seen_at"`

	// ─────────────────────────────
	// Send history (derived from OutreachRecords)
	// ─────────────────────────────

	// LastContactedAt equals the timestamp of the most recent
	// OutreachRecord with OutcomeSent for this email. Zero = never sent.
	LastContactedAt time.Time `json:"last_contacted_at,omitzero"`

	// TimesContacted equals the number of OutreachRecords with
	// OutcomeSent for this email. It never regresses.
	TimesContacted int `json:"times_contacted"`
}

// Contacted reports whether the contact has ever received a message.
func (c *Contact) Contacted() bool {
	return !c.LastContactedAt.IsZero()
}

// Organization groups the contacts belonging to one outreach target.
type Organization struct {
	// Name is the unique key.
	Name string `json:"name"`

	// Category drives which message template is used for its contacts.
	Category Category `json:"category"`

	// Website is the base URL used by discovery.
	Website string `json:"website,omitempty"`

	// Priority orders scraping, 5 being highest.
	Priority int `json:"priority,omitempty"`

	// Members holds the normalized emails of contacts belonging to it.
	Members []string `json:"members,omitempty"`

	// LastScrapedAt is updated after each discovery pass over the
	// organization's website. Zero = never scraped.
	LastScrapedAt time.Time `json:"last_scraped_at,omitzero"`
}

// HasMember reports whether email is already a member of the organization.
func (o *Organization) HasMember(email string) bool {
	for _, m := range o.Members {
		if m == email {
			return true
		}
	}
	return false
}

// Outcome is the terminal result of one delivery attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// OutreachRecord is an immutable log entry for one delivery attempt.
// Records are append-only; they are never mutated or deleted, only
// pruned by age for storage hygiene.
type OutreachRecord struct {
	ID           string    `json:"id"`
	ContactEmail string    `json:"contact_email"`
	Organization string    `json:"organization"`
	Timestamp    time.Time `json:"timestamp"`
	Template     string    `json:"template"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error,omitempty"`
}

// OptOutEntry permanently excludes an email address from eligibility.
// Entries are appended on opt-out requests and never removed.
type OptOutEntry struct {
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	Source    string    `json:"source,omitempty"` // web, manual, bounce
}

// Candidate is a (contact, organization) pair considered for one
// outreach cycle.
type Candidate struct {
	Contact      *Contact
	Organization string
}

// Snapshot is an immutable view of the registry handed to the throttle
// and the report builder. Callers must not mutate it after creation.
type Snapshot struct {
	Contacts      map[string]*Contact     // normalized email -> contact
	Organizations map[string]*Organization // name -> organization
	OptOuts       map[string]OptOutEntry  // normalized email -> entry
	Records       []OutreachRecord
}

// OptedOut reports whether email is permanently excluded.
func (s *Snapshot) OptedOut(email string) bool {
	_, ok := s.OptOuts[NormalizeEmail(email)]
	return ok
}

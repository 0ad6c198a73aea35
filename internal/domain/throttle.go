package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidParameter is returned by SelectEligible for caller-correctable
// input problems: negative caps, negative cooldown, or duplicate
// (contact, organization) pairs in the candidate list. It is never
// retried automatically.
var ErrInvalidParameter = errors.New("invalid parameter")

// SelectEligible returns the subset of candidates eligible to be messaged
// at asOf, in deterministic order. It is a pure filter: no side effects,
// no I/O, identical inputs yield identical output. The caller records an
// OutreachRecord for each pair actually sent and folds the outcome back
// into contact state before the next invocation.
//
// Exclusion rules, applied in order:
//
//  1. Opted-out emails are dropped. Permanent, no override.
//  2. Contacts with asOf - LastContactedAt < cooldownDays are dropped.
//     Never-contacted contacts always pass.
//  3. Per organization, at most maxPerOrg candidates survive, earliest
//     FirstSeenAt first (email as final tie-break).
//  4. At most maxDaily candidates survive overall, organizations in the
//     order they first appeared in candidates.
//
// An empty result is valid, not an error.
func SelectEligible(snap *Snapshot, candidates []Candidate, asOf time.Time, cooldownDays, maxDaily, maxPerOrg int) ([]Candidate, error) {
	if cooldownDays < 0 {
		return nil, fmt.Errorf("%w: cooldownDays must be >= 0, got %d", ErrInvalidParameter, cooldownDays)
	}
	if maxDaily < 0 {
		return nil, fmt.Errorf("%w: maxDaily must be >= 0, got %d", ErrInvalidParameter, maxDaily)
	}
	if maxPerOrg < 0 {
		return nil, fmt.Errorf("%w: maxPerOrganization must be >= 0, got %d", ErrInvalidParameter, maxPerOrg)
	}

	type pairKey struct {
		email string
		org   string
	}
	// Organization order is fixed by first appearance in the input, before
	// any exclusion rule runs, so dropping a candidate never reshuffles
	// which organization gets the next global slot.
	seen := make(map[pairKey]struct{}, len(candidates))
	var orgOrder []string
	orgSeen := make(map[string]struct{})
	for _, c := range candidates {
		if c.Contact == nil {
			return nil, fmt.Errorf("%w: candidate with nil contact", ErrInvalidParameter)
		}
		key := pairKey{email: NormalizeEmail(c.Contact.Email), org: c.Organization}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate candidate pair (%s, %s)", ErrInvalidParameter, key.email, key.org)
		}
		seen[key] = struct{}{}
		if _, ok := orgSeen[c.Organization]; !ok {
			orgSeen[c.Organization] = struct{}{}
			orgOrder = append(orgOrder, c.Organization)
		}
	}

	cooldown := time.Duration(cooldownDays) * 24 * time.Hour

	// Rules 1 and 2, preserving candidate order.
	byOrg := make(map[string][]Candidate)
	for _, c := range candidates {
		if snap.OptedOut(c.Contact.Email) {
			continue
		}
		if c.Contact.Contacted() && asOf.Sub(c.Contact.LastContactedAt) < cooldown {
			continue
		}
		byOrg[c.Organization] = append(byOrg[c.Organization], c)
	}

	// Rule 3: per-organization cap, oldest discovery first.
	for org, group := range byOrg {
		sort.SliceStable(group, func(i, j int) bool {
			fi, fj := group[i].Contact.FirstSeenAt, group[j].Contact.FirstSeenAt
			if !fi.Equal(fj) {
				return fi.Before(fj)
			}
			return NormalizeEmail(group[i].Contact.Email) < NormalizeEmail(group[j].Contact.Email)
		})
		if len(group) > maxPerOrg {
			group = group[:maxPerOrg]
		}
		byOrg[org] = group
	}

	// Rule 4: global cap, organizations in first-appearance order.
	selected := make([]Candidate, 0, maxDaily)
	for _, org := range orgOrder {
		for _, c := range byOrg[org] {
			if len(selected) >= maxDaily {
				return selected, nil
			}
			selected = append(selected, c)
		}
	}

	return selected, nil
}

package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openfoundry/outreach/internal/domain"
)

// Report aggregates outreach activity for /api/stats and the operator
// summary mail.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	Organizations int `json:"organizations"`
	Contacts      int `json:"contacts"`
	OptOuts       int `json:"opt_outs"`

	TotalSent   int `json:"total_sent"`
	TotalFailed int `json:"total_failed"`

	ContactsByCategory map[string]int `json:"contacts_by_category"`
	SentByOrganization map[string]int `json:"sent_by_organization"`
	SentByTemplate     map[string]int `json:"sent_by_template"`
	OptOutsByReason    map[string]int `json:"opt_outs_by_reason"`

	SentLast7Days   int `json:"sent_last_7_days"`
	FailedLast7Days int `json:"failed_last_7_days"`
}

// Build computes a report over a registry snapshot. asOf anchors the
// trailing 7-day window.
func Build(snap *domain.Snapshot, asOf time.Time) *Report {
	r := &Report{
		GeneratedAt:        asOf,
		Organizations:      len(snap.Organizations),
		Contacts:           len(snap.Contacts),
		OptOuts:            len(snap.OptOuts),
		ContactsByCategory: make(map[string]int),
		SentByOrganization: make(map[string]int),
		SentByTemplate:     make(map[string]int),
		OptOutsByReason:    make(map[string]int),
	}

	for _, c := range snap.Contacts {
		r.ContactsByCategory[string(c.Category)]++
	}

	weekAgo := asOf.Add(-7 * 24 * time.Hour)
	for _, rec := range snap.Records {
		recent := rec.Timestamp.After(weekAgo)
		switch rec.Outcome {
		case domain.OutcomeSent:
			r.TotalSent++
			r.SentByOrganization[rec.Organization]++
			r.SentByTemplate[rec.Template]++
			if recent {
				r.SentLast7Days++
			}
		case domain.OutcomeFailed:
			r.TotalFailed++
			if recent {
				r.FailedLast7Days++
			}
		}
	}

	for _, e := range snap.OptOuts {
		reason := e.Reason
		if reason == "" {
			reason = "unspecified"
		}
		r.OptOutsByReason[reason]++
	}

	return r
}

// Summary renders the report as the plain-text digest mailed to the
// operator.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Outreach summary for %s\n\n", r.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Organizations: %d\n", r.Organizations)
	fmt.Fprintf(&b, "Contacts:      %d\n", r.Contacts)
	fmt.Fprintf(&b, "Opt-outs:      %d\n", r.OptOuts)
	fmt.Fprintf(&b, "Sent:          %d (last 7 days: %d)\n", r.TotalSent, r.SentLast7Days)
	fmt.Fprintf(&b, "Failed:        %d (last 7 days: %d)\n", r.TotalFailed, r.FailedLast7Days)

	if len(r.SentByOrganization) > 0 {
		b.WriteString("\nSent by organization:\n")
		for _, k := range sortedKeys(r.SentByOrganization) {
			fmt.Fprintf(&b, "  %-30s %d\n", k, r.SentByOrganization[k])
		}
	}
	if len(r.SentByTemplate) > 0 {
		b.WriteString("\nSent by template:\n")
		for _, k := range sortedKeys(r.SentByTemplate) {
			fmt.Fprintf(&b, "  %-30s %d\n", k, r.SentByTemplate[k])
		}
	}
	if len(r.OptOutsByReason) > 0 {
		b.WriteString("\nOpt-outs by reason:\n")
		for _, k := range sortedKeys(r.OptOutsByReason) {
			fmt.Fprintf(&b, "  %-30s %d\n", k, r.OptOutsByReason[k])
		}
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

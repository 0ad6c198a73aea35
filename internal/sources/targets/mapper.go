package targets

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/openfoundry/outreach/internal/domain"
)

// Target couples an organization with the hints needed to discover
// contacts on its website.
type Target struct {
	Organization domain.Organization
	ContactPages []string // relative paths to probe, ex: "/contact"
	Emails       []string // known addresses, recorded without scraping
}

// Mapper converts raw targets.yaml entries to Target entities
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapTargets converts a TargetsConfig to []*Target.
// Entries with an unknown category, missing name or unparsable website
// are skipped.
func (m *Mapper) MapTargets(config TargetsConfig) ([]*Target, error) {
	var out []*Target

	for rawCategory, entries := range config {
		category := domain.Category(rawCategory)
		if !domain.ValidCategory(category) {
			continue
		}
		for _, props := range entries {
			if props.Name == "" || props.Website == "" {
				continue
			}

			parsedURL, err := url.Parse(props.Website)
			if err != nil || parsedURL.Hostname() == "" {
				continue
			}

			priority := props.Priority
			if priority == 0 {
				priority = 3
			}

			out = append(out, &Target{
				Organization: domain.Organization{
					Name:     props.Name,
					Category: category,
					Website:  strings.TrimRight(props.Website, "/"),
					Priority: priority,
				},
				ContactPages: normalizePaths(props.ContactPages),
				Emails:       props.Emails,
			})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid targets found in config")
	}

	// Highest priority scrapes first; name breaks ties so the order is
	// stable across runs.
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Organization, out[j].Organization
		if oi.Priority != oj.Priority {
			return oi.Priority > oj.Priority
		}
		return oi.Name < oj.Name
	})

	return out, nil
}

// normalizePaths guarantees a leading slash on every contact page path.
func normalizePaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, p)
	}
	return out
}

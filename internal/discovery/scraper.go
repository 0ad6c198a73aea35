package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/openfoundry/outreach/internal/domain"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/sources/targets"
	"github.com/openfoundry/outreach/internal/utils"
)

const userAgent = "outreach-bot/1.0 (+contact discovery)"

// defaultContactPaths are probed when a target lists no explicit
// contact_pages. Category-specific paths go first.
var defaultContactPaths = map[domain.Category][]string{
	domain.CategoryPublication: {"/contact", "/about", "/tips", "/editorial"},
	domain.CategoryCommunity:   {"/contact", "/about", "/team"},
	domain.CategoryPlatform:    {"/contact", "/about", "/partners"},
	domain.CategoryInfluencer:  {"/contact", "/about"},
}

// Scraper fetches a target's contact pages and extracts addresses.
type Scraper struct {
	client *http.Client
	delay  time.Duration
	log    logger.Logger
}

func NewScraper(timeout, delay time.Duration, log logger.Logger) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		delay:  delay,
		log:    log,
	}
}

// Discover returns the contacts found for one target: addresses listed
// in the target definition plus whatever its contact pages expose.
// Page-level fetch and parse failures are logged and skipped, the
// remaining pages still contribute.
func (s *Scraper) Discover(ctx context.Context, tg *targets.Target) ([]domain.Contact, error) {
	now := time.Now().UTC()
	org := tg.Organization

	var contacts []domain.Contact
	seen := make(map[string]bool)

	add := func(found Found, source string) {
		if seen[found.Email] {
			return
		}
		seen[found.Email] = true
		contacts = append(contacts, domain.Contact{
			Email:        found.Email,
			Name:         found.Name,
			Organization: org.Name,
			Category:     org.Category,
			Source:       source,
			FirstSeenAt:  now,
		})
	}

	// Addresses pinned in targets.yaml skip the scrape but not the filters.
	for _, raw := range tg.Emails {
		email := domain.NormalizeEmail(raw)
		if !domain.ValidEmail(email) || domain.IsRoleAccount(email) || domain.IsTestDomain(email) {
			continue
		}
		add(Found{Email: email}, "targets")
	}

	paths := tg.ContactPages
	if len(paths) == 0 {
		paths = defaultContactPaths[org.Category]
	}

	for i, path := range paths {
		if i > 0 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				return contacts, err
			}
		}

		pageURL := strings.TrimRight(org.Website, "/") + path
		found, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			s.log.Debug("contact page skipped",
				logger.String("org", org.Name),
				logger.String("url", pageURL),
				logger.Error(err))
			continue
		}
		for _, f := range found {
			add(f, pageURL)
		}
	}

	return contacts, nil
}

func (s *Scraper) fetchPage(ctx context.Context, pageURL string) ([]Found, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return ExtractEmails(doc), nil
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

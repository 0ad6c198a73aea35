package discovery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/openfoundry/outreach/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// atToken / dotToken undo the common spelled-out obfuscations:
	// "press [at] site [dot] com", "press (at) site (dot) com".
	atToken  = regexp.MustCompile(`(?i)\s*[\[(]\s*at\s*[\])]\s*`)
	dotToken = regexp.MustCompile(`(?i)\s*[\[(]\s*dot\s*[\])]\s*`)
)

// Found is one address extracted from a page, with the display name
// attached when the surrounding markup carried one.
type Found struct {
	Email string
	Name  string
}

// ExtractEmails pulls candidate addresses out of a parsed page:
// mailto: links first (they may carry a display name), then plain and
// obfuscated addresses in the visible text. Role accounts, placeholder
// domains and malformed addresses are dropped, duplicates keep the
// first occurrence.
func ExtractEmails(doc *goquery.Document) []Found {
	var out []Found
	seen := make(map[string]bool)

	add := func(email, name string) {
		email = domain.NormalizeEmail(email)
		if !domain.ValidEmail(email) || domain.IsRoleAccount(email) || domain.IsTestDomain(email) {
			return
		}
		if seen[email] {
			return
		}
		seen[email] = true
		out = append(out, Found{Email: email, Name: name})
	}

	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if decoded, err := url.QueryUnescape(addr); err == nil {
			addr = decoded
		}

		// Link text is a display name only when it is not the address itself.
		name := strings.TrimSpace(sel.Text())
		if strings.ContainsRune(name, '@') || len(name) > 80 {
			name = ""
		}
		add(addr, name)
	})

	text := doc.Text()
	for _, m := range emailPattern.FindAllString(text, -1) {
		add(m, "")
	}

	deobfuscated := dotToken.ReplaceAllString(atToken.ReplaceAllString(text, "@"), ".")
	for _, m := range emailPattern.FindAllString(deobfuscated, -1) {
		add(m, "")
	}

	return out
}

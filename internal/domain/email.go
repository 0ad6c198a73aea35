package domain

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// roleAccountPrefixes are local parts that never belong to a person.
// Messages to these either bounce or land in shared queues.
var roleAccountPrefixes = []string{
	"noreply", "no-reply", "donotreply", "mailer-daemon",
	"postmaster", "abuse", "security", "legal",
	"privacy", "gdpr", "unsubscribe", "bounces",
}

// testDomains are honeypot, placeholder or throwaway mail domains that
// discovery must never keep.
var testDomains = map[string]bool{
	"example.com": true, "example.org": true, "example.net": true,
	"test.com": true, "test.org": true, "test.net": true,
	"localhost": true, "fake.com": true, "dummy.com": true,
	"spam.com": true, "honeypot.com": true,
	"mailinator.com": true, "10minutemail.com": true,
	"tempmail.org": true, "guerrillamail.com": true,
}

// NormalizeEmail lowercases and trims an address. All registry keys and
// opt-out lookups go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// EmailDomain returns the lowercased domain part, or "" when s has none.
func EmailDomain(s string) string {
	at := strings.LastIndexByte(s, '@')
	if at < 0 || at == len(s)-1 {
		return ""
	}
	return strings.ToLower(s[at+1:])
}

// IsRoleAccount reports whether the address belongs to an automated or
// shared mailbox rather than a person.
func IsRoleAccount(email string) bool {
	email = NormalizeEmail(email)
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	for _, p := range roleAccountPrefixes {
		if strings.Contains(local, p) {
			return true
		}
	}
	return false
}

// IsTestDomain reports whether the address lives on a placeholder or
// disposable mail domain.
func IsTestDomain(email string) bool {
	d := EmailDomain(NormalizeEmail(email))
	if d == "" {
		return true
	}
	return testDomains[d]
}

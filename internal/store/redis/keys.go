package redis

const (
	// KeyPrefixDailySent is the prefix for whole-day send counters.
	KeyPrefixDailySent = "outreach:sent:"
	// KeyPrefixOrgSent is the prefix for per-organization daily counters.
	KeyPrefixOrgSent = "outreach:sent:org:"
)

// DailySentKey returns the counter key for one UTC day (YYYY-MM-DD).
func DailySentKey(day string) string {
	return KeyPrefixDailySent + day
}

// OrgSentKey returns the per-organization counter key for one UTC day.
func OrgSentKey(day, org string) string {
	return KeyPrefixOrgSent + day + ":" + org
}

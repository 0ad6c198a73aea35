package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DataDir     string // directory holding contacts.json, outreach_log.json, opt_outs.json
	TargetsFile string // path to the targets.yaml file

	DiscoveryInterval time.Duration // interval between discovery runs (default: 24h)
	OutreachInterval  time.Duration // interval between outreach cycles (default: 1h)
	PruneInterval     time.Duration // interval between log pruning runs (default: 24h)
	LogRetention      time.Duration // outreach log entries older than this are pruned (default: 2160h = 90d)
	ScrapeCooldown    time.Duration // minimum delay before re-scraping the same target (default: 168h = 7d)
	FetchTimeout      time.Duration // HTTP timeout for a single page fetch (default: 15s)
	FetchDelay        time.Duration // polite delay between page fetches (default: 2s)
	SendDelay         time.Duration // delay between consecutive sends within a cycle (default: 30s)

	// Throttle policy
	CooldownDays int // days before the same contact may be emailed again (default: 30)
	MaxDaily     int // max messages per UTC day across all organizations (default: 50)
	MaxPerOrg    int // max messages per organization within one cycle (default: 4)

	// SMTP
	SMTPHost     string // ex: "smtp.example.com"
	SMTPPort     int    // ex: 587
	SMTPUser     string // optional, empty = no auth
	SMTPPassword string // optional
	FromAddress  string // sender address, ex: "sender@example.com"
	FromName     string // sender display name
	ReplyTo      string // optional
	BCCAddress   string // optional, copy every send to this address
	OptOutURL    string // base URL embedded in the opt-out footer
	DryRun       bool   // true => render but never hand off to SMTP

	NotifyAddress   string        // operator address for the daily summary (empty = disabled)
	SummaryInterval time.Duration // interval between operator summaries (default: 24h)

	// Redis (optional, empty addr = shared counters disabled)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("OUTREACH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("OUTREACH_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("OUTREACH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("OUTREACH_PRETTY_LOG", true),

		// Data files
		DataDir:     getenv("OUTREACH_DATA_DIR", "/app/data"),
		TargetsFile: requireEnv("OUTREACH_TARGETS_FILE"),

		// Schedules
		DiscoveryInterval: mustDuration("OUTREACH_DISCOVERY_INTERVAL", 24*time.Hour),
		OutreachInterval:  mustDuration("OUTREACH_CYCLE_INTERVAL", time.Hour),
		PruneInterval:     mustDuration("OUTREACH_PRUNE_INTERVAL", 24*time.Hour),
		LogRetention:      mustDuration("OUTREACH_LOG_RETENTION", 90*24*time.Hour),
		ScrapeCooldown:    mustDuration("OUTREACH_SCRAPE_COOLDOWN", 7*24*time.Hour),
		FetchTimeout:      mustDuration("OUTREACH_FETCH_TIMEOUT", 15*time.Second),
		FetchDelay:        mustDuration("OUTREACH_FETCH_DELAY", 2*time.Second),
		SendDelay:         mustDuration("OUTREACH_SEND_DELAY", 30*time.Second),

		// Throttle policy
		CooldownDays: getenvInt("OUTREACH_COOLDOWN_DAYS", 30),
		MaxDaily:     getenvInt("OUTREACH_MAX_DAILY", 50),
		MaxPerOrg:    getenvInt("OUTREACH_MAX_PER_ORG", 4),

		// SMTP settings
		SMTPHost:     requireEnv("OUTREACH_SMTP_HOST"),
		SMTPPort:     getenvInt("OUTREACH_SMTP_PORT", 587),
		SMTPUser:     getenv("OUTREACH_SMTP_USER", ""),
		SMTPPassword: getenv("OUTREACH_SMTP_PASSWORD", ""),
		FromAddress:  requireEnv("OUTREACH_FROM_ADDRESS"),
		FromName:     getenv("OUTREACH_FROM_NAME", ""),
		ReplyTo:      getenv("OUTREACH_REPLY_TO", ""),
		BCCAddress:   getenv("OUTREACH_BCC_ADDRESS", ""),
		OptOutURL:    getenv("OUTREACH_OPTOUT_URL", ""),
		DryRun:       mustBool("OUTREACH_DRY_RUN", false),

		NotifyAddress:   getenv("OUTREACH_NOTIFY_ADDRESS", ""),
		SummaryInterval: mustDuration("OUTREACH_SUMMARY_INTERVAL", 24*time.Hour),

		// Redis settings (optional, empty addr = shared counters disabled)
		RedisAddr:           getenv("OUTREACH_REDIS_ADDR", ""),
		RedisUser:           getenv("OUTREACH_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("OUTREACH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("OUTREACH_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: parseList(getenv("OUTREACH_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseList(getenv("OUTREACH_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("OUTREACH_TRUST_PROXY", false),
	}

	if cfg.CooldownDays < 0 || cfg.MaxDaily < 0 || cfg.MaxPerOrg < 0 {
		panic("❌ FATAL: OUTREACH_COOLDOWN_DAYS, OUTREACH_MAX_DAILY and OUTREACH_MAX_PER_ORG must not be negative")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.SMTPPassword != "" {
			cfgCopy.SMTPPassword = "***REDACTED***"
		}
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OUTREACH_TARGETS_FILE", "/app/targets.yaml")
	t.Setenv("OUTREACH_SMTP_HOST", "smtp.example.com")
	t.Setenv("OUTREACH_FROM_ADDRESS", "sender@example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q, want %q", cfg.ListenPort, ":8080")
	}
	if cfg.CooldownDays != 30 {
		t.Errorf("CooldownDays = %d, want 30", cfg.CooldownDays)
	}
	if cfg.MaxDaily != 50 {
		t.Errorf("MaxDaily = %d, want 50", cfg.MaxDaily)
	}
	if cfg.MaxPerOrg != 4 {
		t.Errorf("MaxPerOrg = %d, want 4", cfg.MaxPerOrg)
	}
	if cfg.OutreachInterval != time.Hour {
		t.Errorf("OutreachInterval = %v, want 1h", cfg.OutreachInterval)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty (disabled)", cfg.RedisAddr)
	}
	if cfg.DryRun {
		t.Error("DryRun should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OUTREACH_MAX_DAILY", "10")
	t.Setenv("OUTREACH_COOLDOWN_DAYS", "7")
	t.Setenv("OUTREACH_CYCLE_INTERVAL", "30m")
	t.Setenv("OUTREACH_DRY_RUN", "true")
	t.Setenv("OUTREACH_ALLOWED_HOSTS", `outreach.example.com, "api.example.com"`)

	cfg := Load()

	if cfg.MaxDaily != 10 {
		t.Errorf("MaxDaily = %d, want 10", cfg.MaxDaily)
	}
	if cfg.CooldownDays != 7 {
		t.Errorf("CooldownDays = %d, want 7", cfg.CooldownDays)
	}
	if cfg.OutreachInterval != 30*time.Minute {
		t.Errorf("OutreachInterval = %v, want 30m", cfg.OutreachInterval)
	}
	if !cfg.DryRun {
		t.Error("DryRun should be true")
	}
	want := []string{"outreach.example.com", "api.example.com"}
	if len(cfg.AllowedHosts) != len(want) {
		t.Fatalf("AllowedHosts = %v, want %v", cfg.AllowedHosts, want)
	}
	for i := range want {
		if cfg.AllowedHosts[i] != want[i] {
			t.Errorf("AllowedHosts[%d] = %q, want %q", i, cfg.AllowedHosts[i], want[i])
		}
	}
}

func TestLoadPanicsOnMissingRequired(t *testing.T) {
	t.Setenv("OUTREACH_TARGETS_FILE", "")
	t.Setenv("OUTREACH_SMTP_HOST", "smtp.example.com")
	t.Setenv("OUTREACH_FROM_ADDRESS", "sender@example.com")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when OUTREACH_TARGETS_FILE is unset")
		}
	}()
	Load()
}

func TestLoadPanicsOnNegativeCaps(t *testing.T) {
	setRequired(t)
	t.Setenv("OUTREACH_MAX_DAILY", "-1")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative OUTREACH_MAX_DAILY")
		}
	}()
	Load()
}

package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/callcenter")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("SMTP_HOST", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("STOCK_ALERT_RECIPIENTS", " ops@example.com, ,warehouse@example.com ")
	t.Setenv("PHONE_DEFAULT_REGION", "mk")
	t.Setenv("WEBHOOK_DEDUPE_WINDOW", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.GetStockAlertRecipients(); len(got) != 2 || got[1] != "warehouse@example.com" {
		t.Fatalf("unexpected recipients %v", got)
	}
	if cfg.GetPhoneDefaultRegion() != "MK" {
		t.Fatalf("expected upper-cased region, got %q", cfg.GetPhoneDefaultRegion())
	}
	if cfg.GetWebhookDedupeWindow() != 5*time.Minute {
		t.Fatalf("expected 5m dedupe window, got %s", cfg.GetWebhookDedupeWindow())
	}
	if cfg.IsSMTPEnabled() {
		t.Fatalf("expected smtp disabled without host")
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_ACCESS_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_ACCESS_SECRET")
	}
}

func TestLoadRejectsWildcardOriginWithCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for wildcard origin with credentials")
	}
}

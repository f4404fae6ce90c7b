package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.TrialDays != 5 {
		t.Fatalf("expected default trial of 5 days, got %d", cfg.TrialDays)
	}
	if cfg.WeekStartsOn != time.Monday {
		t.Fatalf("expected Monday weeks by default, got %v", cfg.WeekStartsOn)
	}
	if cfg.BackupConfigured() {
		t.Fatal("backup must be unconfigured without MinIO settings")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9091")
	t.Setenv("TRIAL_DAYS", "14")
	t.Setenv("WEEK_STARTS_ON", "Sunday")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "key")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	cfg := Load()
	if cfg.Port != "9091" {
		t.Fatalf("expected port 9091, got %q", cfg.Port)
	}
	if cfg.TrialDays != 14 {
		t.Fatalf("expected 14 trial days, got %d", cfg.TrialDays)
	}
	if cfg.WeekStartsOn != time.Sunday {
		t.Fatalf("expected Sunday weeks, got %v", cfg.WeekStartsOn)
	}
	if !cfg.BackupConfigured() {
		t.Fatal("expected backup to be configured")
	}
	if cfg.Address() != ":9091" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestBadNumbersFallBack(t *testing.T) {
	t.Setenv("TRIAL_DAYS", "zero")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "-5")
	t.Setenv("WEEK_STARTS_ON", "caturday")

	cfg := Load()
	if cfg.TrialDays != 5 || cfg.ReportTTLSeconds != 30 {
		t.Fatalf("expected fallbacks, got trial=%d ttl=%d", cfg.TrialDays, cfg.ReportTTLSeconds)
	}
	if cfg.WeekStartsOn != time.Monday {
		t.Fatalf("expected Monday fallback, got %v", cfg.WeekStartsOn)
	}
}

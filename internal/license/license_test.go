package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/store/memory"
)

func TestTrialClockStartsOnFirstLaunch(t *testing.T) {
	repo := memory.New()
	mgr := NewManager(repo, "test-secret", 5)
	ctx := context.Background()

	start := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return start }

	if err := mgr.EnsureFirstLaunch(ctx); err != nil {
		t.Fatalf("first launch: %v", err)
	}
	status, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Activated || !status.TrialActive || status.RemainingDays != 5 {
		t.Fatalf("unexpected fresh status: %+v", status)
	}

	// A later run must not reset the clock.
	mgr.now = func() time.Time { return start.Add(72 * time.Hour) }
	if err := mgr.EnsureFirstLaunch(ctx); err != nil {
		t.Fatalf("repeat launch: %v", err)
	}
	status, err = mgr.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.RemainingDays != 2 {
		t.Fatalf("expected 2 remaining days, got %d", status.RemainingDays)
	}
}

func TestTrialExpires(t *testing.T) {
	repo := memory.New()
	mgr := NewManager(repo, "test-secret", 5)
	ctx := context.Background()

	start := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return start }
	if err := mgr.EnsureFirstLaunch(ctx); err != nil {
		t.Fatalf("first launch: %v", err)
	}

	mgr.now = func() time.Time { return start.AddDate(0, 0, 6) }
	status, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TrialActive || status.RemainingDays != 0 {
		t.Fatalf("expected expired trial, got %+v", status)
	}
	allowed, err := mgr.Allowed(ctx)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if allowed {
		t.Fatal("expired unactivated trial must not be allowed")
	}
}

func TestActivationOutlivesTrial(t *testing.T) {
	repo := memory.New()
	mgr := NewManager(repo, "test-secret", 5)
	ctx := context.Background()

	start := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return start }
	if err := mgr.EnsureFirstLaunch(ctx); err != nil {
		t.Fatalf("first launch: %v", err)
	}

	key, err := mgr.MintKey("shop-42")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := mgr.Activate(ctx, key); err != nil {
		t.Fatalf("activate: %v", err)
	}

	mgr.now = func() time.Time { return start.AddDate(1, 0, 0) }
	status, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Activated {
		t.Fatalf("expected permanent activation, got %+v", status)
	}
	allowed, err := mgr.Allowed(ctx)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if !allowed {
		t.Fatal("activated app must be allowed after trial expiry")
	}
}

func TestActivateRejectsBadKeys(t *testing.T) {
	repo := memory.New()
	mgr := NewManager(repo, "test-secret", 5)
	ctx := context.Background()

	if err := mgr.Activate(ctx, "not-a-key"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for garbage, got %v", err)
	}

	other := NewManager(repo, "other-secret", 5)
	foreign, err := other.MintKey("shop-42")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := mgr.Activate(ctx, foreign); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for wrong secret, got %v", err)
	}

	if _, err := repo.GetSetting(ctx, domain.SettingActivationKey); err == nil {
		t.Fatal("rejected keys must not be persisted")
	}
}

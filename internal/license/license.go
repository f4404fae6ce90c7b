// Package license gates the app behind a time-limited trial that an
// activation key lifts permanently. First-launch time and the accepted
// key live in the settings table so reinstalling the binary does not
// restart the clock.
package license

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/store"
)

var ErrInvalidKey = errors.New("invalid activation key")

// SettingsStore is the slice of the repository the manager needs.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key string, value string) error
}

type Manager struct {
	settings  SettingsStore
	secret    []byte
	trialDays int

	now func() time.Time
}

func NewManager(settings SettingsStore, secret string, trialDays int) *Manager {
	if trialDays < 1 {
		trialDays = 5
	}
	return &Manager{
		settings:  settings,
		secret:    []byte(secret),
		trialDays: trialDays,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureFirstLaunch records the trial start on the very first run and
// is a no-op afterwards.
func (m *Manager) EnsureFirstLaunch(ctx context.Context) error {
	_, err := m.settings.GetSetting(ctx, domain.SettingFirstLaunch)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return m.settings.SetSetting(ctx, domain.SettingFirstLaunch, m.now().Format(time.RFC3339))
}

func (m *Manager) Status(ctx context.Context) (*domain.LicenseStatus, error) {
	if key, err := m.settings.GetSetting(ctx, domain.SettingActivationKey); err == nil {
		if m.verifyKey(key) == nil {
			return &domain.LicenseStatus{Activated: true}, nil
		}
		// A stored key that no longer verifies falls through to the
		// trial clock.
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	raw, err := m.settings.GetSetting(ctx, domain.SettingFirstLaunch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := m.EnsureFirstLaunch(ctx); err != nil {
				return nil, err
			}
			return &domain.LicenseStatus{
				TrialActive:   true,
				RemainingDays: m.trialDays,
				FirstLaunch:   m.now().Format(time.RFC3339),
			}, nil
		}
		return nil, err
	}

	firstLaunch, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}

	elapsed := int(m.now().Sub(firstLaunch).Hours() / 24)
	remaining := m.trialDays - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return &domain.LicenseStatus{
		TrialActive:   remaining > 0,
		RemainingDays: remaining,
		FirstLaunch:   firstLaunch.Format(time.RFC3339),
	}, nil
}

// Allowed reports whether the app may serve its normal routes.
func (m *Manager) Allowed(ctx context.Context) (bool, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Activated || status.TrialActive, nil
}

// Activate verifies a key and persists it. Activation survives trial
// expiry permanently.
func (m *Manager) Activate(ctx context.Context, key string) error {
	if err := m.verifyKey(key); err != nil {
		return err
	}
	return m.settings.SetSetting(ctx, domain.SettingActivationKey, key)
}

func (m *Manager) verifyKey(key string) error {
	token, err := jwt.Parse(key, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return ErrInvalidKey
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidKey
	}
	if scope, _ := claims["scope"].(string); scope != "activation" {
		return ErrInvalidKey
	}
	return nil
}

// MintKey issues an activation key. It exists for the vendor-side
// keygen tool and for tests; the server never calls it on behalf of a
// client.
func (m *Manager) MintKey(issuedTo string) (string, error) {
	claims := jwt.MapClaims{
		"scope": "activation",
		"sub":   issuedTo,
		"iat":   m.now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

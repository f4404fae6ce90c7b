package httpapi

import (
	"context"
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/license"
	"dastak/backend/internal/store"
)

// AuthManager handles the single owner account. The bcrypt hash of the
// owner password lives in the settings table; on first start it is
// seeded from configuration.
type AuthManager struct {
	settings license.SettingsStore
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthManager(settings license.SettingsStore, secret string, tokenTTL time.Duration) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		settings: settings,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// SeedOwnerPassword stores a bcrypt hash of password unless one is
// already present.
func (a *AuthManager) SeedOwnerPassword(ctx context.Context, password string) error {
	if password == "" {
		return nil
	}
	if _, err := a.settings.GetSetting(ctx, domain.SettingOwnerPasswordHash); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return a.settings.SetSetting(ctx, domain.SettingOwnerPasswordHash, string(hash))
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	hash, err := a.settings.GetSetting(ctx, domain.SettingOwnerPasswordHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, errors.New("owner password not configured")
		}
		return domain.LoginResponse{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	claims := jwtlib.RegisteredClaims{
		Subject:   "owner",
		IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwtlib.NewNumericDate(expiresAt),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) error {
	claims := &jwtlib.RegisteredClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return errors.New("invalid or expired token")
	}
	if claims.Subject != "owner" {
		return errors.New("invalid token subject")
	}
	return nil
}

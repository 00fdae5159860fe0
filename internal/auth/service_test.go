package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"drifttapes/internal/config"
	"drifttapes/internal/database"
	"drifttapes/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, mutate func(*config.AuthConfig)) *Service {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"), 1, logging.Discard())
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig().Auth
	if mutate != nil {
		mutate(&cfg)
	}

	svc, err := NewService(cfg, db, logging.Discard(), WithHashCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(t, nil)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "dj@drift.test", "longenough", nil},
		{"duplicate ignoring case", "DJ@Drift.Test", "longenough", ErrEmailTaken},
		{"missing at", "dj.drift.test", "longenough", ErrInvalidEmail},
		{"no domain dot", "dj@localhost", "longenough", ErrInvalidEmail},
		{"display name form", "DJ <dj2@drift.test>", "longenough", ErrInvalidEmail},
		{"short password", "new@drift.test", "short", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(tt.email, tt.password, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Signup() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignupDefaults(t *testing.T) {
	svc := newTestService(t, nil)

	user, err := svc.Signup("  Night.Owl@Drift.test ", "longenough", "")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if user.Email != "night.owl@drift.test" || user.DisplayName != "night.owl" {
		t.Errorf("user = %+v", user)
	}
	if user.ID == "" || user.PasswordHash == "longenough" {
		t.Errorf("user id or hash not set: %+v", user)
	}
}

func TestLoginAndProfile(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.Signup("dj@drift.test", "longenough", "DJ"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Login("dj@drift.test", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong password) error = %v", err)
	}
	if _, _, err := svc.Login("nobody@drift.test", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown) error = %v", err)
	}

	session, user, err := svc.Login("DJ@drift.test", "longenough")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.UserID != user.ID {
		t.Errorf("session user = %s, want %s", session.UserID, user.ID)
	}

	profile, err := svc.Profile(session.ID)
	if err != nil || profile.DisplayName != "DJ" {
		t.Errorf("Profile() = %+v, %v", profile, err)
	}

	updated, err := svc.UpdateProfile(session.ID, "  DJ Drift ")
	if err != nil || updated.DisplayName != "DJ Drift" {
		t.Errorf("UpdateProfile() = %+v, %v", updated, err)
	}
	if _, err := svc.UpdateProfile(session.ID, "   "); !errors.Is(err, ErrInvalidDisplayName) {
		t.Errorf("UpdateProfile(blank) error = %v", err)
	}

	svc.Logout(session.ID)
	if _, err := svc.Profile(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Profile() after logout error = %v", err)
	}
}

func TestDisabledService(t *testing.T) {
	svc := newTestService(t, func(c *config.AuthConfig) { c.Enabled = false })

	if _, err := svc.Signup("dj@drift.test", "longenough", ""); !errors.Is(err, ErrRegistrationDisabled) {
		t.Errorf("Signup() error = %v", err)
	}
	if _, _, err := svc.Login("dj@drift.test", "longenough"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Login() error = %v", err)
	}
}

func TestRegistrationClosed(t *testing.T) {
	svc := newTestService(t, func(c *config.AuthConfig) { c.AllowRegistration = false })

	if _, err := svc.Signup("dj@drift.test", "longenough", ""); !errors.Is(err, ErrRegistrationDisabled) {
		t.Errorf("Signup() error = %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("burst attempts were rejected")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("attempt beyond burst was allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other address was throttled")
	}
}

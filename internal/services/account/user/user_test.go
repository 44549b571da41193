package user

import (
	"errors"
	"testing"
	"time"

	"github.com/swoplabs/swopcredit/internal/services/account/tier"
)

func TestCreateProfileDefaults(t *testing.T) {
	input := CreateProfileInput{Email: "alice@example.com", Username: "alice"}
	_, err := CreateProfile(input, nil, nil)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}

	created, err := CreateProfile(input, nil, func() (string, error) { return "user-1", nil })
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if created.XP != 0 {
		t.Fatalf("expected zero starting XP, got %d", created.XP)
	}
	if created.Tier != tier.Bronze {
		t.Fatalf("expected bronze tier, got %s", created.Tier)
	}
	if created.LoanLimit != 500 {
		t.Fatalf("expected bronze loan limit 500, got %d", created.LoanLimit)
	}
	if created.ActiveLoan {
		t.Fatal("expected no active loan on signup")
	}
	if created.SwopBalance != 0 {
		t.Fatalf("expected zero swop balance, got %d", created.SwopBalance)
	}
	if created.Theme != DefaultTheme || !created.DarkMode {
		t.Fatalf("expected default theme preferences, got theme=%q darkMode=%v", created.Theme, created.DarkMode)
	}

	_, err = CreateProfile(input, nil, func() (string, error) { return "", errors.New("id generator error") })
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateProfileNormalizesInput(t *testing.T) {
	fixedTime := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	input := CreateProfileInput{Email: "  Alice@Example.COM ", Username: "  Alice  "}

	created, err := CreateProfile(input, func() time.Time { return fixedTime }, func() (string, error) {
		return "user-123", nil
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}

	if created.ID != "user-123" {
		t.Fatalf("expected id user-123, got %q", created.ID)
	}
	if created.Username != "alice" {
		t.Fatalf("expected lowercased trimmed username, got %q", created.Username)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("expected lowercased trimmed email, got %q", created.Email)
	}
	if !created.CreatedAt.Equal(fixedTime) || !created.UpdatedAt.Equal(fixedTime) {
		t.Fatalf("expected timestamps to match fixed time")
	}
}

func TestNormalizeCreateProfileInputValidation(t *testing.T) {
	_, err := NormalizeCreateProfileInput(CreateProfileInput{Username: "   "})
	if !errors.Is(err, ErrEmptyUsername) {
		t.Fatalf("expected error %v, got %v", ErrEmptyUsername, err)
	}
	_, err = NormalizeCreateProfileInput(CreateProfileInput{Username: "alice", Email: "not-an-email"})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected error %v, got %v", ErrInvalidEmail, err)
	}
}

func TestValidateUsernameFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "valid lowercase", input: "alice", wantErr: nil},
		{name: "valid with dots", input: "alice.b", wantErr: nil},
		{name: "valid with dashes", input: "alice-b", wantErr: nil},
		{name: "valid with underscores", input: "alice_b", wantErr: nil},
		{name: "valid with numbers", input: "alice123", wantErr: nil},
		{name: "valid min length", input: "abc", wantErr: nil},
		{name: "valid max length", input: "abcdefghijklmnopqrstuvwxyz012345", wantErr: nil},
		{name: "too short", input: "ab", wantErr: ErrInvalidUsername},
		{name: "too long", input: "abcdefghijklmnopqrstuvwxyz0123456", wantErr: ErrInvalidUsername},
		{name: "uppercase", input: "Alice", wantErr: ErrInvalidUsername},
		{name: "spaces", input: "alice b", wantErr: ErrInvalidUsername},
		{name: "symbols", input: "alice!", wantErr: ErrInvalidUsername},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsername(tc.input)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected %q to be valid, got %v", tc.input, err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v for %q, got %v", tc.wantErr, tc.input, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password error, got %v", err)
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Fatalf("expected password to be accepted, got %v", err)
	}
}

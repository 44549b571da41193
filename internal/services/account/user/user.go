// Package user provides account identity management.
package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/platform/id"
	"github.com/swoplabs/swopcredit/internal/services/account/tier"
)

var (
	// ErrEmptyUsername indicates a missing username.
	ErrEmptyUsername = apperrors.New(apperrors.CodeUserEmptyUsername, "username is required")
	// ErrInvalidUsername indicates a username that does not match the required format.
	ErrInvalidUsername = apperrors.New(apperrors.CodeUserInvalidUsername, "username must be 3-32 lowercase alphanumeric, dot, dash, or underscore characters")
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = apperrors.New(apperrors.CodeUserInvalidEmail, "email address is malformed")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = apperrors.New(apperrors.CodeUserWeakPassword, "password must be at least 8 characters")

	usernamePattern = regexp.MustCompile(`^[a-z0-9_.\-]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// DefaultTheme is the theme assigned to newly created profiles.
const DefaultTheme = "sunset"

// MinPasswordLength is the shortest accepted signup password.
const MinPasswordLength = 8

// Profile is the per-user game-state document.
type Profile struct {
	ID             string
	Email          string
	Username       string
	AvatarURL      string
	Theme          string
	DarkMode       bool
	XP             int64
	Tier           tier.Tier
	LoanLimit      int64
	Balance        int64
	SwopBalance    int64
	CompletedLoans int64
	ActiveLoan     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateProfileInput describes the metadata needed to create a profile.
type CreateProfileInput struct {
	Email    string
	Username string
}

// ValidateUsername enforces canonical username constraints used by transfer
// recipient lookups and display across services.
func ValidateUsername(s string) error {
	if !usernamePattern.MatchString(s) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail applies a shape check only; deliverability is out of scope.
func ValidateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum signup password length.
func ValidatePassword(s string) error {
	if len(s) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// CreateProfile creates a durable profile from validated input.
//
// This is the canonical point where untrusted signup data becomes a stable
// identity with its progression defaults: zero XP, bronze tier, the bronze
// loan limit, and empty balances.
func CreateProfile(input CreateProfileInput, now func() time.Time, idGenerator func() (string, error)) (Profile, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateProfileInput(input)
	if err != nil {
		return Profile{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return Profile{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return Profile{
		ID:        userID,
		Email:     normalized.Email,
		Username:  normalized.Username,
		Theme:     DefaultTheme,
		DarkMode:  true,
		XP:        0,
		Tier:      tier.Bronze,
		LoanLimit: tier.LoanLimit(tier.Bronze),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

// NormalizeCreateProfileInput trims and normalizes input before validation.
func NormalizeCreateProfileInput(input CreateProfileInput) (CreateProfileInput, error) {
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	if input.Username == "" {
		return CreateProfileInput{}, ErrEmptyUsername
	}
	if err := ValidateUsername(input.Username); err != nil {
		return CreateProfileInput{}, err
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := ValidateEmail(input.Email); err != nil {
		return CreateProfileInput{}, err
	}
	return input, nil
}

// Package account handles signup, login, and profile preferences.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/platform/id"
	"github.com/swoplabs/swopcredit/internal/services/account/user"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// Service manages account lifecycle and profile preferences.
type Service struct {
	profiles storage.ProfileStore
	outbox   storage.OutboxStore
	clock    func() time.Time
	hashCost int
}

// NewService wires an account service over its stores.
func NewService(profiles storage.ProfileStore, outbox storage.OutboxStore, clock func() time.Time) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{profiles: profiles, outbox: outbox, clock: clock, hashCost: bcrypt.DefaultCost}, nil
}

// SignUpInput carries untrusted signup fields.
type SignUpInput struct {
	Email    string
	Username string
	Password string
}

// SignUp creates a profile with progression defaults and queues the
// signed-up event.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (storage.Profile, error) {
	if s == nil {
		return storage.Profile{}, fmt.Errorf("account service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}
	if err := user.ValidatePassword(input.Password); err != nil {
		return storage.Profile{}, err
	}

	created, err := user.CreateProfile(user.CreateProfileInput{
		Email:    input.Email,
		Username: input.Username,
	}, s.clock, nil)
	if err != nil {
		return storage.Profile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return storage.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	profile := storage.Profile{
		ID:           created.ID,
		Email:        created.Email,
		Username:     created.Username,
		PasswordHash: string(hash),
		Theme:        created.Theme,
		DarkMode:     created.DarkMode,
		XP:           created.XP,
		Tier:         created.Tier,
		LoanLimit:    created.LoanLimit,
		CreatedAt:    created.CreatedAt,
		UpdatedAt:    created.UpdatedAt,
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.Profile{}, apperrors.Wrap(apperrors.CodeUserAlreadyExists, "email or username already registered", err)
		}
		return storage.Profile{}, err
	}

	payload, err := json.Marshal(map[string]string{
		"user_id":  profile.ID,
		"username": profile.Username,
	})
	if err != nil {
		return storage.Profile{}, fmt.Errorf("marshal signup event: %w", err)
	}
	err = s.outbox.EnqueueOutboxEvent(ctx, storage.OutboxEvent{
		ID:          id.MustNewID(),
		EventType:   storage.EventUserSignedUp,
		PayloadJSON: string(payload),
		DedupeKey:   storage.EventUserSignedUp + ":" + profile.ID,
		CreatedAt:   profile.CreatedAt,
	})
	if err != nil {
		return storage.Profile{}, fmt.Errorf("queue signup event: %w", err)
	}

	profile.PasswordHash = ""
	return profile, nil
}

// Login verifies credentials and returns the profile.
func (s *Service) Login(ctx context.Context, email string, password string) (storage.Profile, error) {
	if s == nil {
		return storage.Profile{}, fmt.Errorf("account service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return storage.Profile{}, apperrors.New(apperrors.CodeBadCredentials, "email and password are required")
	}

	profile, err := s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Profile{}, apperrors.New(apperrors.CodeBadCredentials, "email or password is incorrect")
		}
		return storage.Profile{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return storage.Profile{}, apperrors.New(apperrors.CodeBadCredentials, "email or password is incorrect")
	}

	profile.PasswordHash = ""
	return profile, nil
}

// Profile returns the caller's profile without credential material.
func (s *Service) Profile(ctx context.Context, userID string) (storage.Profile, error) {
	if s == nil {
		return storage.Profile{}, fmt.Errorf("account service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}
	profile, err := s.profiles.GetProfile(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Profile{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", err)
		}
		return storage.Profile{}, err
	}
	profile.PasswordHash = ""
	return profile, nil
}

// PreferencesInput carries optional display-setting changes. Nil fields
// stay unchanged.
type PreferencesInput struct {
	Theme    *string
	DarkMode *bool
	Username *string
}

// UpdatePreferences applies display-setting changes for one user.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, input PreferencesInput) (storage.Profile, error) {
	if s == nil {
		return storage.Profile{}, fmt.Errorf("account service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}

	if input.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*input.Username))
		if username == "" {
			return storage.Profile{}, user.ErrEmptyUsername
		}
		if err := user.ValidateUsername(username); err != nil {
			return storage.Profile{}, err
		}
		input.Username = &username
	}
	if input.Theme != nil && strings.TrimSpace(*input.Theme) == "" {
		theme := user.DefaultTheme
		input.Theme = &theme
	}

	profile, err := s.profiles.UpdatePreferences(ctx, strings.TrimSpace(userID), storage.PreferenceUpdate{
		Theme:    input.Theme,
		DarkMode: input.DarkMode,
		Username: input.Username,
	}, s.clock().UTC())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return storage.Profile{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", err)
		case errors.Is(err, storage.ErrAlreadyExists):
			return storage.Profile{}, apperrors.Wrap(apperrors.CodeUserAlreadyExists, "username already taken", err)
		default:
			return storage.Profile{}, err
		}
	}
	profile.PasswordHash = ""
	return profile, nil
}

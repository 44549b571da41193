package domain

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/swoplabs/swopcredit/internal/storage"
)

// SignupWelcomeHandler acknowledges new signups. It confirms the profile
// committed before emitting the welcome notice so a replayed event for a
// deleted account dies instead of retrying forever.
type SignupWelcomeHandler struct {
	profiles storage.ProfileStore
	logf     func(format string, args ...any)
}

// NewSignupWelcomeHandler creates a signup welcome event handler.
func NewSignupWelcomeHandler(profiles storage.ProfileStore, logf func(format string, args ...any)) *SignupWelcomeHandler {
	if logf == nil {
		logf = log.Printf
	}
	return &SignupWelcomeHandler{profiles: profiles, logf: logf}
}

// Handle processes user signed up events.
func (h *SignupWelcomeHandler) Handle(ctx context.Context, event storage.OutboxEvent) error {
	if h == nil || h.profiles == nil {
		return Permanent(fmt.Errorf("profile store is not configured"))
	}
	payload, err := decodeSignupEventPayload(event)
	if err != nil {
		return Permanent(err)
	}
	profile, err := h.profiles.GetProfile(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Permanent(fmt.Errorf("welcome user %s: %w", payload.UserID, err))
		}
		return err
	}
	h.logf("welcome @%s joined at tier %s with limit R%d", profile.Username, profile.Tier, profile.LoanLimit)
	return nil
}

// DefaultedNoticeHandler records loan default events for operator review.
type DefaultedNoticeHandler struct {
	logf func(format string, args ...any)
}

// NewDefaultedNoticeHandler creates a loan defaulted event handler.
func NewDefaultedNoticeHandler(logf func(format string, args ...any)) *DefaultedNoticeHandler {
	if logf == nil {
		logf = log.Printf
	}
	return &DefaultedNoticeHandler{logf: logf}
}

// Handle processes loan defaulted events.
func (h *DefaultedNoticeHandler) Handle(ctx context.Context, event storage.OutboxEvent) error {
	if h == nil {
		return Permanent(fmt.Errorf("handler is not configured"))
	}
	payload, err := decodeLoanEventPayload(event)
	if err != nil {
		return Permanent(err)
	}
	h.logf("loan %s defaulted for user %s (R%d outstanding)", payload.LoanID, payload.UserID, payload.Amount)
	return nil
}

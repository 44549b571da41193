package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swoplabs/swopcredit/internal/services/loan/terms"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// RepaidRewardHandler grants progression XP when a loan repayment event
// arrives. The XP amount depends on how close to the due date the borrower
// repaid.
type RepaidRewardHandler struct {
	rewards storage.RewardStore
	clock   func() time.Time
}

// NewRepaidRewardHandler creates a repayment reward event handler.
func NewRepaidRewardHandler(rewards storage.RewardStore, clock func() time.Time) *RepaidRewardHandler {
	if clock == nil {
		clock = time.Now
	}
	return &RepaidRewardHandler{rewards: rewards, clock: clock}
}

// Handle converts loan repaid events into XP grants and reward ledger rows.
func (h *RepaidRewardHandler) Handle(ctx context.Context, event storage.OutboxEvent) error {
	if h == nil || h.rewards == nil {
		return Permanent(fmt.Errorf("reward store is not configured"))
	}
	payload, err := decodeLoanEventPayload(event)
	if err != nil {
		return Permanent(err)
	}

	xp := terms.RepaymentXP(payload.Urgency)
	_, err = h.rewards.GrantXP(ctx, storage.GrantXPInput{
		UserID:      payload.UserID,
		XP:          xp,
		LoanID:      payload.LoanID,
		Description: fmt.Sprintf("Repayment reward (+%d XP)", xp),
		Now:         h.clock().UTC(),
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return Permanent(fmt.Errorf("grant xp for user %s: %w", payload.UserID, err))
	}
	return err
}

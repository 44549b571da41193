package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swoplabs/swopcredit/internal/storage"
)

// loanEventPayload captures the durable fields consumed by loan handlers.
type loanEventPayload struct {
	LoanID  string `json:"loan_id"`
	UserID  string `json:"user_id"`
	Amount  int64  `json:"amount"`
	Urgency string `json:"urgency"`
}

// decodeLoanEventPayload centralizes payload parsing so all loan handlers
// enforce the same required fields and permanent-error semantics.
func decodeLoanEventPayload(event storage.OutboxEvent) (loanEventPayload, error) {
	var payload loanEventPayload
	if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
		return loanEventPayload{}, fmt.Errorf("decode loan payload: %w", err)
	}
	payload.LoanID = strings.TrimSpace(payload.LoanID)
	if payload.LoanID == "" {
		return loanEventPayload{}, fmt.Errorf("loan_id is required in loan payload")
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	if payload.UserID == "" {
		return loanEventPayload{}, fmt.Errorf("user_id is required in loan payload")
	}
	payload.Urgency = strings.TrimSpace(payload.Urgency)
	return payload, nil
}

// signupEventPayload captures the durable fields consumed by signup handlers.
type signupEventPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func decodeSignupEventPayload(event storage.OutboxEvent) (signupEventPayload, error) {
	var payload signupEventPayload
	if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
		return signupEventPayload{}, fmt.Errorf("decode signup payload: %w", err)
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	if payload.UserID == "" {
		return signupEventPayload{}, fmt.Errorf("user_id is required in signup payload")
	}
	payload.Username = strings.TrimSpace(payload.Username)
	return payload, nil
}

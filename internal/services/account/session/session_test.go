package session

import (
	"testing"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	manager, err := NewManager("", time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := manager.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %s", userID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	manager, err := NewManager("", time.Hour, func() time.Time { return current })
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := manager.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	current = current.Add(2 * time.Hour)
	_, err = manager.Verify(token)
	if apperrors.GetCode(err) != apperrors.CodeSessionInvalid {
		t.Fatalf("expected session invalid, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	manager, err := NewManager("", time.Hour, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	other, err := NewManager("", time.Hour, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = manager.Verify(token)
	if apperrors.GetCode(err) != apperrors.CodeSessionInvalid {
		t.Fatalf("expected session invalid, got %v", err)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	manager, err := NewManager("", time.Hour, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	_, err = manager.Verify("  ")
	if apperrors.GetCode(err) != apperrors.CodeSessionInvalid {
		t.Fatalf("expected session invalid, got %v", err)
	}
}

func TestNewManagerRejectsShortSeed(t *testing.T) {
	if _, err := NewManager("c2hvcnQ=", time.Hour, nil); err == nil {
		t.Fatal("expected error for short seed")
	}
}

package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swoplabs/swopcredit/internal/storage"
)

type fakeRewardStore struct {
	grants []storage.GrantXPInput
	err    error
}

func (f *fakeRewardStore) GrantXP(ctx context.Context, input storage.GrantXPInput) (storage.Profile, error) {
	if f.err != nil {
		return storage.Profile{}, f.err
	}
	f.grants = append(f.grants, input)
	return storage.Profile{ID: input.UserID, XP: input.XP}, nil
}

func repaidEvent(t *testing.T, payload string) storage.OutboxEvent {
	t.Helper()
	return storage.OutboxEvent{
		ID:          "evt-1",
		EventType:   storage.EventLoanRepaid,
		PayloadJSON: payload,
	}
}

func TestRepaidRewardHandler_GrantsUrgencyXP(t *testing.T) {
	store := &fakeRewardStore{}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	handler := NewRepaidRewardHandler(store, func() time.Time { return now })

	event := repaidEvent(t, `{"loan_id":"loan-1","user_id":"user-1","amount":500,"urgency":"warning"}`)
	if err := handler.Handle(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(store.grants) != 1 {
		t.Fatalf("grants len = %d, want 1", len(store.grants))
	}
	grant := store.grants[0]
	if grant.UserID != "user-1" || grant.LoanID != "loan-1" {
		t.Fatalf("grant target = %q/%q, want user-1/loan-1", grant.UserID, grant.LoanID)
	}
	if grant.XP != 150 {
		t.Fatalf("xp = %d, want 150", grant.XP)
	}
	if !grant.Now.Equal(now) {
		t.Fatalf("grant time = %v, want %v", grant.Now, now)
	}
}

func TestRepaidRewardHandler_UnknownUrgencyGrantsMinimum(t *testing.T) {
	store := &fakeRewardStore{}
	handler := NewRepaidRewardHandler(store, nil)

	event := repaidEvent(t, `{"loan_id":"loan-1","user_id":"user-1","urgency":"bogus"}`)
	if err := handler.Handle(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.grants[0].XP != 50 {
		t.Fatalf("xp = %d, want 50", store.grants[0].XP)
	}
}

func TestRepaidRewardHandler_MalformedPayloadIsPermanent(t *testing.T) {
	handler := NewRepaidRewardHandler(&fakeRewardStore{}, nil)

	cases := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "{"},
		{name: "missing loan id", payload: `{"user_id":"user-1"}`},
		{name: "missing user id", payload: `{"loan_id":"loan-1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := handler.Handle(context.Background(), repaidEvent(t, tc.payload))
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsPermanent(err) {
				t.Fatalf("expected permanent error, got %v", err)
			}
		})
	}
}

func TestRepaidRewardHandler_MissingUserIsPermanent(t *testing.T) {
	store := &fakeRewardStore{err: storage.ErrNotFound}
	handler := NewRepaidRewardHandler(store, nil)

	err := handler.Handle(context.Background(), repaidEvent(t, `{"loan_id":"loan-1","user_id":"gone"}`))
	if !IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestRepaidRewardHandler_TransientStoreErrorRetries(t *testing.T) {
	storeErr := errors.New("database is locked")
	handler := NewRepaidRewardHandler(&fakeRewardStore{err: storeErr}, nil)

	err := handler.Handle(context.Background(), repaidEvent(t, `{"loan_id":"loan-1","user_id":"user-1"}`))
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected transient error passthrough, got %v", err)
	}
	if IsPermanent(err) {
		t.Fatal("transient store error must stay retryable")
	}
}

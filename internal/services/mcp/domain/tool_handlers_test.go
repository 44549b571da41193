package domain

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/account/tier"
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
	"github.com/swoplabs/swopcredit/internal/storage"
)

type fakeProfiles struct {
	profiles map[string]storage.Profile
}

func (f *fakeProfiles) GetProfileByUsername(ctx context.Context, username string) (storage.Profile, error) {
	profile, ok := f.profiles[username]
	if !ok {
		return storage.Profile{}, apperrors.New(apperrors.CodeUserNotFound, "user not found")
	}
	return profile, nil
}

type fakeLoans struct {
	quote   loanservice.Quote
	status  loanservice.Status
	history []storage.Loan
}

func (f *fakeLoans) QuoteLoan(ctx context.Context, userID string, amount int64) (loanservice.Quote, error) {
	return f.quote, nil
}

func (f *fakeLoans) ActiveStatus(ctx context.Context, userID string) (loanservice.Status, error) {
	return f.status, nil
}

func (f *fakeLoans) History(ctx context.Context, userID string, limit int) ([]storage.Loan, error) {
	return f.history, nil
}

type fakeLedger struct {
	page storage.TransactionPage
}

func (f *fakeLedger) Ledger(ctx context.Context, userID string, filterExpr string, pageSize int, pageToken string) (storage.TransactionPage, error) {
	return f.page, nil
}

func testProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[string]storage.Profile{
		"thabo": {
			ID:          "user-1",
			Username:    "thabo",
			XP:          600,
			Tier:        tier.Silver,
			LoanLimit:   1000,
			SwopBalance: 420,
			CreatedAt:   time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		},
	}}
}

func TestProfileGetHandler(t *testing.T) {
	handler := ProfileGetHandler(testProfiles())

	_, result, err := handler(context.Background(), nil, ProfileGetInput{Username: "thabo"})
	if err != nil {
		t.Fatalf("profile get: %v", err)
	}
	if result.ID != "user-1" || result.Tier != "silver" || result.XP != 600 {
		t.Fatalf("result = %+v", result)
	}
	if result.CreatedAt != "2026-02-01T09:00:00Z" {
		t.Fatalf("created at = %q", result.CreatedAt)
	}
}

func TestProfileGetHandlerUnknownUser(t *testing.T) {
	handler := ProfileGetHandler(testProfiles())

	_, _, err := handler(context.Background(), nil, ProfileGetInput{Username: "ghost"})
	if err == nil {
		t.Fatal("expected lookup error")
	}
	if !strings.Contains(err.Error(), "@ghost") {
		t.Fatalf("error = %q, want username in message", err.Error())
	}
}

func TestProfileGetHandlerRequiresUsername(t *testing.T) {
	handler := ProfileGetHandler(testProfiles())

	_, _, err := handler(context.Background(), nil, ProfileGetInput{Username: "  "})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoanQuoteHandler(t *testing.T) {
	loans := &fakeLoans{quote: loanservice.Quote{
		Amount:        500,
		InitiationFee: 215,
		Disbursement:  285,
		TotalDue:      500,
		CycleHours:    72,
	}}
	handler := LoanQuoteHandler(testProfiles(), loans)

	_, result, err := handler(context.Background(), nil, LoanQuoteInput{Username: "thabo", Amount: 500})
	if err != nil {
		t.Fatalf("loan quote: %v", err)
	}
	if result.InitiationFee != 215 || result.Disbursement != 285 || result.CycleHours != 72 {
		t.Fatalf("result = %+v", result)
	}
}

func TestLoanActiveHandlerWithLoan(t *testing.T) {
	due := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	loans := &fakeLoans{status: loanservice.Status{
		HasActive: true,
		Loan:      storage.Loan{ID: "loan-9", Amount: 250, Status: storage.LoanStatusActive, DueDate: due},
		Urgency:   "warning",
		Remaining: 13 * time.Hour,
	}}
	handler := LoanActiveHandler(testProfiles(), loans)

	_, result, err := handler(context.Background(), nil, LoanActiveInput{Username: "thabo"})
	if err != nil {
		t.Fatalf("loan active: %v", err)
	}
	if !result.HasActive || result.Urgency != "warning" || result.SecondsLeft != 13*3600 {
		t.Fatalf("result = %+v", result)
	}
	if result.Loan == nil || result.Loan.ID != "loan-9" {
		t.Fatalf("loan = %+v", result.Loan)
	}
}

func TestLoanActiveHandlerWithoutLoan(t *testing.T) {
	handler := LoanActiveHandler(testProfiles(), &fakeLoans{})

	_, result, err := handler(context.Background(), nil, LoanActiveInput{Username: "thabo"})
	if err != nil {
		t.Fatalf("loan active: %v", err)
	}
	if result.HasActive || result.Loan != nil || result.Urgency != "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestLedgerListHandler(t *testing.T) {
	ledger := &fakeLedger{page: storage.TransactionPage{
		Transactions: []storage.Transaction{
			{ID: "tx-1", Type: storage.TransactionTypeRepayment, Amount: -500, CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		},
		NextPageToken: "next",
	}}
	handler := LedgerListHandler(testProfiles(), ledger)

	_, result, err := handler(context.Background(), nil, LedgerListInput{Username: "thabo"})
	if err != nil {
		t.Fatalf("ledger list: %v", err)
	}
	if len(result.Transactions) != 1 || result.Transactions[0].ID != "tx-1" {
		t.Fatalf("transactions = %+v", result.Transactions)
	}
	if result.NextPageToken != "next" {
		t.Fatalf("next page token = %q", result.NextPageToken)
	}
}

// Package loan issues and settles 72-hour cycle loans.
package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swoplabs/swopcredit/internal/platform/currency"
	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/loan/terms"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// Service issues, tracks, and settles loans for one borrower at a time.
type Service struct {
	profiles storage.ProfileStore
	loans    storage.LoanStore
	clock    func() time.Time
	newID    func() string
}

// NewService wires a loan service over its stores. A nil clock uses UTC
// wall time.
func NewService(profiles storage.ProfileStore, loans storage.LoanStore, clock func() time.Time, newID func() string) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if loans == nil {
		return nil, fmt.Errorf("loan store is required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{profiles: profiles, loans: loans, clock: clock, newID: newID}, nil
}

// Quote describes loan terms before the borrower commits.
type Quote struct {
	Amount        int64
	InitiationFee int64
	Disbursement  int64
	TotalDue      int64
	CycleHours    int
}

// QuoteLoan prices a loan without issuing it.
func (s *Service) QuoteLoan(ctx context.Context, userID string, amount int64) (Quote, error) {
	if s == nil {
		return Quote{}, fmt.Errorf("loan service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return Quote{}, mapProfileError(err)
	}
	if err := validateAmount(amount, profile.LoanLimit); err != nil {
		return Quote{}, err
	}
	return Quote{
		Amount:        amount,
		InitiationFee: terms.InitiationFee(amount),
		Disbursement:  terms.Disbursement(amount),
		TotalDue:      amount,
		CycleHours:    int(terms.CycleDuration / time.Hour),
	}, nil
}

// RequestLoan issues a loan, credits the net disbursement, and starts the
// 72-hour repayment clock.
func (s *Service) RequestLoan(ctx context.Context, userID string, amount int64) (storage.Loan, error) {
	if s == nil {
		return storage.Loan{}, fmt.Errorf("loan service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.Loan{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.Loan{}, apperrors.New(apperrors.CodeUserNotFound, "user id is required")
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return storage.Loan{}, mapProfileError(err)
	}
	if err := validateAmount(amount, profile.LoanLimit); err != nil {
		return storage.Loan{}, err
	}

	now := s.clock().UTC()
	loan := storage.Loan{
		UserID:        userID,
		Amount:        amount,
		InitiationFee: terms.InitiationFee(amount),
		TotalAmount:   amount,
		CreatedAt:     now,
		DueDate:       terms.DueDate(now),
	}
	if s.newID != nil {
		loan.ID = s.newID()
	}

	disbursement := terms.Disbursement(amount)
	description := fmt.Sprintf("Loan of %s (fee %s)", currency.Rand(amount), currency.Rand(loan.InitiationFee))
	created, err := s.loans.DisburseLoan(ctx, loan, disbursement, description)
	if err != nil {
		return storage.Loan{}, mapStorageError(err)
	}
	return created, nil
}

// RepayLoan settles the borrower's loan in full from their $SWOP balance.
// The reward event queued by the store carries the urgency at repayment
// time so the worker can grant the matching XP.
func (s *Service) RepayLoan(ctx context.Context, userID string, loanID string) (storage.Loan, error) {
	if s == nil {
		return storage.Loan{}, fmt.Errorf("loan service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.Loan{}, err
	}
	loanID = strings.TrimSpace(loanID)
	if loanID == "" {
		return storage.Loan{}, apperrors.New(apperrors.CodeLoanNotFound, "loan id is required")
	}

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return storage.Loan{}, mapStorageError(err)
	}

	now := s.clock().UTC()
	urgency := terms.Urgency(loan.DueDate, now)
	repaid, err := s.loans.RepayLoan(ctx, storage.RepayInput{
		LoanID:      loanID,
		UserID:      strings.TrimSpace(userID),
		Description: fmt.Sprintf("Repaid %s", currency.Rand(loan.TotalAmount)),
		Urgency:     urgency,
		Now:         now,
	})
	if err != nil {
		return storage.Loan{}, mapStorageError(err)
	}
	return repaid, nil
}

// Status describes the borrower's current loan position.
type Status struct {
	Loan      storage.Loan
	HasActive bool
	Urgency   string
	Remaining time.Duration
}

// ActiveStatus reports the borrower's active loan with its urgency bucket.
func (s *Service) ActiveStatus(ctx context.Context, userID string) (Status, error) {
	if s == nil {
		return Status{}, fmt.Errorf("loan service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	loan, err := s.loans.GetActiveLoan(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Status{}, nil
		}
		return Status{}, mapStorageError(err)
	}

	now := s.clock().UTC()
	return Status{
		Loan:      loan,
		HasActive: true,
		Urgency:   terms.Urgency(loan.DueDate, now),
		Remaining: loan.DueDate.Sub(now),
	}, nil
}

// History lists the borrower's past and present loans newest-first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]storage.Loan, error) {
	if s == nil {
		return nil, fmt.Errorf("loan service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	loans, err := s.loans.ListLoans(ctx, userID, limit)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return loans, nil
}

// SweepOverdue defaults loans past their due date.
func (s *Service) SweepOverdue(ctx context.Context) ([]storage.Loan, error) {
	if s == nil {
		return nil, fmt.Errorf("loan service is not configured")
	}
	defaulted, err := s.loans.SweepOverdueLoans(ctx, s.clock().UTC())
	if err != nil {
		return nil, mapStorageError(err)
	}
	return defaulted, nil
}

func validateAmount(amount int64, limit int64) error {
	if amount < terms.MinAmount {
		return apperrors.WithMetadata(
			apperrors.CodeLoanBelowMinimum,
			fmt.Sprintf("minimum loan is %s", currency.Rand(terms.MinAmount)),
			map[string]string{"minimum": currency.Rand(terms.MinAmount)},
		)
	}
	if amount > limit {
		return apperrors.WithMetadata(
			apperrors.CodeLoanOverLimit,
			fmt.Sprintf("loan limit is %s", currency.Rand(limit)),
			map[string]string{"limit": currency.Rand(limit)},
		)
	}
	if terms.InitiationFee(amount) >= amount {
		return apperrors.New(apperrors.CodeLoanFeeExceedsValue, "initiation fee exceeds loan value")
	}
	return nil
}

func mapProfileError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", err)
	}
	return err
}

func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeLoanNotFound, "loan not found", err)
	case errors.Is(err, storage.ErrActiveLoanExists):
		return apperrors.Wrap(apperrors.CodeLoanActiveExists, "an active loan already exists", err)
	case errors.Is(err, storage.ErrLoanNotActive):
		return apperrors.Wrap(apperrors.CodeLoanNotActive, "loan is not active", err)
	case errors.Is(err, storage.ErrInsufficientBalance):
		return apperrors.Wrap(apperrors.CodeInsufficientBalance, "balance does not cover repayment", err)
	default:
		return err
	}
}

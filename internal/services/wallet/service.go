// Package wallet moves $SWOP between profiles and reads the ledger.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/wallet/ledgerfilter"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const defaultPageSize = 25
const maxPageSize = 100

// Service handles peer transfers, top-ups, withdrawals, and ledger reads.
type Service struct {
	profiles storage.ProfileStore
	wallet   storage.WalletStore
	clock    func() time.Time
}

// NewService wires a wallet service over its stores.
func NewService(profiles storage.ProfileStore, wallet storage.WalletStore, clock func() time.Time) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet store is required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{profiles: profiles, wallet: wallet, clock: clock}, nil
}

// Transfer reports one completed peer transfer.
type Transfer struct {
	Result            storage.TransferResult
	RecipientUsername string
}

// SendSwop transfers $SWOP to another user identified by username.
func (s *Service) SendSwop(ctx context.Context, senderID string, recipientUsername string, amount int64) (Transfer, error) {
	if s == nil {
		return Transfer{}, fmt.Errorf("wallet service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return Transfer{}, err
	}
	senderID = strings.TrimSpace(senderID)
	recipientUsername = strings.ToLower(strings.TrimSpace(recipientUsername))
	if senderID == "" {
		return Transfer{}, apperrors.New(apperrors.CodeUserNotFound, "sender id is required")
	}
	if amount <= 0 {
		return Transfer{}, apperrors.New(apperrors.CodeAmountNotPositive, "amount must be greater than zero")
	}

	recipient, err := s.profiles.GetProfileByUsername(ctx, recipientUsername)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Transfer{}, apperrors.WithMetadata(
				apperrors.CodeUserNotFound,
				"recipient not found",
				map[string]string{"username": recipientUsername},
			)
		}
		return Transfer{}, err
	}
	if recipient.ID == senderID {
		return Transfer{}, apperrors.New(apperrors.CodeSelfTransfer, "cannot send $SWOP to yourself")
	}

	sender, err := s.profiles.GetProfile(ctx, senderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Transfer{}, apperrors.Wrap(apperrors.CodeUserNotFound, "sender not found", err)
		}
		return Transfer{}, err
	}

	result, err := s.wallet.TransferSwop(ctx, storage.TransferInput{
		SenderID:             senderID,
		RecipientID:          recipient.ID,
		Amount:               amount,
		SenderDescription:    fmt.Sprintf("Sent to @%s", recipient.Username),
		RecipientDescription: fmt.Sprintf("Received from @%s", sender.Username),
		Now:                  s.clock().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInsufficientBalance):
			return Transfer{}, apperrors.Wrap(apperrors.CodeInsufficientBalance, "balance does not cover transfer", err)
		case errors.Is(err, storage.ErrNotFound):
			return Transfer{}, apperrors.Wrap(apperrors.CodeUserNotFound, "transfer party not found", err)
		default:
			return Transfer{}, err
		}
	}
	return Transfer{Result: result, RecipientUsername: recipient.Username}, nil
}

// AddFunds tops up the caller's $SWOP balance. It returns the ledger row and
// the resulting balance.
func (s *Service) AddFunds(ctx context.Context, userID string, amount int64) (storage.Transaction, int64, error) {
	return s.adjust(ctx, userID, amount, storage.TransactionTypeSwopAdd, "Added $SWOP")
}

// Withdraw removes $SWOP from the caller's balance. It returns the ledger row
// and the resulting balance.
func (s *Service) Withdraw(ctx context.Context, userID string, amount int64) (storage.Transaction, int64, error) {
	if s == nil {
		return storage.Transaction{}, 0, fmt.Errorf("wallet service is not configured")
	}
	if amount <= 0 {
		return storage.Transaction{}, 0, apperrors.New(apperrors.CodeAmountNotPositive, "amount must be greater than zero")
	}
	return s.adjust(ctx, userID, -amount, storage.TransactionTypeSwopWithdraw, "Withdrew $SWOP")
}

func (s *Service) adjust(ctx context.Context, userID string, amount int64, txType string, description string) (storage.Transaction, int64, error) {
	if s == nil {
		return storage.Transaction{}, 0, fmt.Errorf("wallet service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.Transaction{}, 0, err
	}
	if amount == 0 || (txType == storage.TransactionTypeSwopAdd && amount < 0) {
		return storage.Transaction{}, 0, apperrors.New(apperrors.CodeAmountNotPositive, "amount must be greater than zero")
	}

	transaction, balance, err := s.wallet.AdjustSwop(ctx, storage.AdjustInput{
		UserID:      strings.TrimSpace(userID),
		Amount:      amount,
		Type:        txType,
		Description: description,
		Now:         s.clock().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInsufficientBalance):
			return storage.Transaction{}, 0, apperrors.Wrap(apperrors.CodeInsufficientBalance, "balance does not cover withdrawal", err)
		case errors.Is(err, storage.ErrNotFound):
			return storage.Transaction{}, 0, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", err)
		default:
			return storage.Transaction{}, 0, err
		}
	}
	return transaction, balance, nil
}

// Ledger lists the caller's transactions newest-first. The filter accepts
// AIP-160 expressions over type, status, amount, xp_earned, loan_id,
// counterparty_id, and created_at.
func (s *Service) Ledger(ctx context.Context, userID string, filterExpr string, pageSize int, pageToken string) (storage.TransactionPage, error) {
	if s == nil {
		return storage.TransactionPage{}, fmt.Errorf("wallet service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.TransactionPage{}, err
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	cond, err := ledgerfilter.Parse(filterExpr)
	if err != nil {
		return storage.TransactionPage{}, apperrors.Wrap(apperrors.CodeLedgerFilterInvalid, "invalid filter expression", err)
	}

	page, err := s.wallet.ListTransactions(ctx, userID, storage.TransactionFilter{
		SQL:    cond.Clause,
		Params: cond.Params,
		Raw:    strings.TrimSpace(filterExpr),
	}, pageSize, strings.TrimSpace(pageToken))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPageToken) {
			return storage.TransactionPage{}, apperrors.Wrap(apperrors.CodeLedgerTokenInvalid, "invalid page token", err)
		}
		return storage.TransactionPage{}, err
	}
	return page, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/swoplabs/swopcredit/internal/platform/id"
	"github.com/swoplabs/swopcredit/internal/platform/storage/cursor"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const transactionColumns = `
	seq,
	id,
	user_id,
	type,
	amount,
	description,
	status,
	counterparty_id,
	loan_id,
	xp_earned,
	created_at
`

func scanTransaction(scan rowScanner) (storage.Transaction, error) {
	var t storage.Transaction
	var createdAt int64
	err := scan.Scan(
		&t.Seq,
		&t.ID,
		&t.UserID,
		&t.Type,
		&t.Amount,
		&t.Description,
		&t.Status,
		&t.CounterpartyID,
		&t.LoanID,
		&t.XPEarned,
		&createdAt,
	)
	if err != nil {
		return storage.Transaction{}, err
	}
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t storage.Transaction) (storage.Transaction, error) {
	result, err := tx.ExecContext(ctx, `
INSERT INTO transactions (
	id, user_id, type, amount, description, status,
	counterparty_id, loan_id, xp_earned, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		t.ID,
		t.UserID,
		t.Type,
		t.Amount,
		t.Description,
		t.Status,
		t.CounterpartyID,
		t.LoanID,
		t.XPEarned,
		toMillis(t.CreatedAt),
	)
	if err != nil {
		return storage.Transaction{}, fmt.Errorf("insert ledger row: %w", err)
	}
	t.Seq, err = result.LastInsertId()
	if err != nil {
		return storage.Transaction{}, fmt.Errorf("read ledger seq: %w", err)
	}
	return t, nil
}

// debitSwop subtracts from a balance only when funds cover the debit. The
// guarded UPDATE doubles as the existence check.
func debitSwop(ctx context.Context, tx *sql.Tx, userID string, amount int64, now time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx, `
UPDATE users SET swop_balance = swop_balance - ?, updated_at = ?
WHERE id = ? AND swop_balance >= ?
`, amount, toMillis(now), userID, amount)
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check debit: %w", err)
	}
	if affected == 0 {
		var exists int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check debit target: %w", err)
		}
		if exists == 0 {
			return 0, storage.ErrNotFound
		}
		return 0, storage.ErrInsufficientBalance
	}
	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT swop_balance FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read balance after debit: %w", err)
	}
	return balance, nil
}

func creditSwop(ctx context.Context, tx *sql.Tx, userID string, amount int64, now time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx, `
UPDATE users SET swop_balance = swop_balance + ?, updated_at = ? WHERE id = ?
`, amount, toMillis(now), userID)
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check credit: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrNotFound
	}
	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT swop_balance FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read balance after credit: %w", err)
	}
	return balance, nil
}

// TransferSwop moves value between two profiles. The debit, the credit, and
// both ledger rows commit or roll back together.
func (s *Store) TransferSwop(ctx context.Context, input storage.TransferInput) (storage.TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.TransferResult{}, err
	}
	input.SenderID = strings.TrimSpace(input.SenderID)
	input.RecipientID = strings.TrimSpace(input.RecipientID)
	if input.SenderID == "" || input.RecipientID == "" {
		return storage.TransferResult{}, fmt.Errorf("sender and recipient ids are required")
	}
	if input.Amount <= 0 {
		return storage.TransferResult{}, fmt.Errorf("transfer amount must be positive")
	}
	if input.SenderID == input.RecipientID {
		return storage.TransferResult{}, fmt.Errorf("sender and recipient must differ")
	}
	if input.Now.IsZero() {
		input.Now = time.Now().UTC()
	}

	var result storage.TransferResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		senderBalance, err := debitSwop(ctx, tx, input.SenderID, input.Amount, input.Now)
		if err != nil {
			return err
		}
		recipientBalance, err := creditSwop(ctx, tx, input.RecipientID, input.Amount, input.Now)
		if err != nil {
			return err
		}

		sent, err := insertTransaction(ctx, tx, storage.Transaction{
			ID:             id.MustNewID(),
			UserID:         input.SenderID,
			Type:           storage.TransactionTypeSwopSend,
			Amount:         -input.Amount,
			Description:    input.SenderDescription,
			Status:         storage.TransactionStatusCompleted,
			CounterpartyID: input.RecipientID,
			CreatedAt:      input.Now,
		})
		if err != nil {
			return err
		}
		received, err := insertTransaction(ctx, tx, storage.Transaction{
			ID:             id.MustNewID(),
			UserID:         input.RecipientID,
			Type:           storage.TransactionTypeSwopReceive,
			Amount:         input.Amount,
			Description:    input.RecipientDescription,
			Status:         storage.TransactionStatusCompleted,
			CounterpartyID: input.SenderID,
			CreatedAt:      input.Now,
		})
		if err != nil {
			return err
		}

		result = storage.TransferResult{
			SenderTransaction:    sent,
			RecipientTransaction: received,
			SenderBalance:        senderBalance,
			RecipientBalance:     recipientBalance,
		}
		return nil
	})
	if err != nil {
		return storage.TransferResult{}, err
	}
	return result, nil
}

// AdjustSwop applies one top-up or withdrawal and its ledger row.
func (s *Store) AdjustSwop(ctx context.Context, input storage.AdjustInput) (storage.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return storage.Transaction{}, 0, err
	}
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return storage.Transaction{}, 0, fmt.Errorf("user id is required")
	}
	if input.Amount == 0 {
		return storage.Transaction{}, 0, fmt.Errorf("adjustment amount must be nonzero")
	}
	if input.Type == "" {
		return storage.Transaction{}, 0, fmt.Errorf("transaction type is required")
	}
	if input.Now.IsZero() {
		input.Now = time.Now().UTC()
	}

	var created storage.Transaction
	var balance int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if input.Amount > 0 {
			balance, err = creditSwop(ctx, tx, input.UserID, input.Amount, input.Now)
		} else {
			balance, err = debitSwop(ctx, tx, input.UserID, -input.Amount, input.Now)
		}
		if err != nil {
			return err
		}

		created, err = insertTransaction(ctx, tx, storage.Transaction{
			ID:          id.MustNewID(),
			UserID:      input.UserID,
			Type:        input.Type,
			Amount:      input.Amount,
			Description: input.Description,
			Status:      storage.TransactionStatusCompleted,
			CreatedAt:   input.Now,
		})
		return err
	})
	if err != nil {
		return storage.Transaction{}, 0, err
	}
	return created, balance, nil
}

// ListTransactions lists ledger rows newest-first with opaque page tokens.
// Tokens carry the filter hash so a token cannot be replayed against a
// different filter expression.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter storage.TransactionFilter, pageSize int, pageToken string) (storage.TransactionPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.TransactionPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TransactionPage{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.TransactionPage{}, fmt.Errorf("user id is required")
	}
	if pageSize <= 0 {
		return storage.TransactionPage{}, fmt.Errorf("page size must be greater than zero")
	}

	filterHash := cursor.HashFilter(filter.Raw)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	params := []any{userID}

	if filter.SQL != "" {
		query += ` AND (` + filter.SQL + `)`
		params = append(params, filter.Params...)
	}

	if pageToken != "" {
		decoded, err := cursor.Decode(pageToken)
		if err != nil {
			return storage.TransactionPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		if decoded.FilterHash != filterHash {
			return storage.TransactionPage{}, fmt.Errorf("%w: filter mismatch", storage.ErrInvalidPageToken)
		}
		query += ` AND seq < ?`
		params = append(params, decoded.Seq)
	}

	query += ` ORDER BY seq DESC LIMIT ?`
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]storage.Transaction, 0, pageSize)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return storage.TransactionPage{}, fmt.Errorf("scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return storage.TransactionPage{}, fmt.Errorf("iterate transactions: %w", err)
	}

	page := storage.TransactionPage{Transactions: transactions}
	if len(transactions) > pageSize {
		page.Transactions = transactions[:pageSize]
		last := page.Transactions[pageSize-1]
		token, err := cursor.Encode(cursor.Cursor{Seq: last.Seq, FilterHash: filterHash})
		if err != nil {
			return storage.TransactionPage{}, fmt.Errorf("encode page token: %w", err)
		}
		page.NextPageToken = token
	}
	return page, nil
}

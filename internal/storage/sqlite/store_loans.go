package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swoplabs/swopcredit/internal/platform/id"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const loanColumns = `
	id,
	user_id,
	amount,
	initiation_fee,
	total_amount,
	status,
	created_at,
	due_date,
	completed_at,
	repaid_amount
`

func scanLoan(scan rowScanner) (storage.Loan, error) {
	var l storage.Loan
	var createdAt, dueDate int64
	var completedAt, repaidAmount sql.NullInt64
	err := scan.Scan(
		&l.ID,
		&l.UserID,
		&l.Amount,
		&l.InitiationFee,
		&l.TotalAmount,
		&l.Status,
		&createdAt,
		&dueDate,
		&completedAt,
		&repaidAmount,
	)
	if err != nil {
		return storage.Loan{}, err
	}
	l.CreatedAt = fromMillis(createdAt)
	l.DueDate = fromMillis(dueDate)
	if completedAt.Valid {
		l.CompletedAt = fromMillis(completedAt.Int64)
	}
	if repaidAmount.Valid {
		l.RepaidAmount = repaidAmount.Int64
	}
	return l, nil
}

// DisburseLoan activates a loan and credits its net disbursement. The
// partial unique index on active loans backs the one-loan-at-a-time rule,
// so a concurrent second request fails inside the same transaction.
func (s *Store) DisburseLoan(ctx context.Context, loan storage.Loan, disbursement int64, description string) (storage.Loan, error) {
	if err := ctx.Err(); err != nil {
		return storage.Loan{}, err
	}
	loan.UserID = strings.TrimSpace(loan.UserID)
	if loan.UserID == "" {
		return storage.Loan{}, fmt.Errorf("user id is required")
	}
	if loan.Amount <= 0 {
		return storage.Loan{}, fmt.Errorf("loan amount must be positive")
	}
	if disbursement <= 0 {
		return storage.Loan{}, fmt.Errorf("disbursement must be positive")
	}
	if loan.ID == "" {
		loan.ID = id.MustNewID()
	}
	loan.Status = storage.LoanStatusActive

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO loans (
	id, user_id, amount, initiation_fee, total_amount, status, created_at, due_date
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
			loan.ID,
			loan.UserID,
			loan.Amount,
			loan.InitiationFee,
			loan.TotalAmount,
			loan.Status,
			toMillis(loan.CreatedAt),
			toMillis(loan.DueDate),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrActiveLoanExists
			}
			return fmt.Errorf("insert loan: %w", err)
		}

		if _, err := creditSwop(ctx, tx, loan.UserID, disbursement, loan.CreatedAt); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
UPDATE users SET active_loan = 1, updated_at = ? WHERE id = ?
`, toMillis(loan.CreatedAt), loan.UserID)
		if err != nil {
			return fmt.Errorf("flag active loan: %w", err)
		}

		_, err = insertTransaction(ctx, tx, storage.Transaction{
			ID:          id.MustNewID(),
			UserID:      loan.UserID,
			Type:        storage.TransactionTypeLoan,
			Amount:      disbursement,
			Description: description,
			Status:      storage.TransactionStatusCompleted,
			LoanID:      loan.ID,
			CreatedAt:   loan.CreatedAt,
		})
		return err
	})
	if err != nil {
		return storage.Loan{}, err
	}
	return loan, nil
}

// RepayLoan settles an active loan in full. The balance debit, the loan
// close, the ledger row, and the reward event commit together.
func (s *Store) RepayLoan(ctx context.Context, input storage.RepayInput) (storage.Loan, error) {
	if err := ctx.Err(); err != nil {
		return storage.Loan{}, err
	}
	input.LoanID = strings.TrimSpace(input.LoanID)
	input.UserID = strings.TrimSpace(input.UserID)
	if input.LoanID == "" || input.UserID == "" {
		return storage.Loan{}, fmt.Errorf("loan and user ids are required")
	}
	if input.Now.IsZero() {
		input.Now = time.Now().UTC()
	}

	var repaid storage.Loan
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, input.LoanID)
		loan, err := scanLoan(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("load loan: %w", err)
		}
		if loan.UserID != input.UserID {
			return storage.ErrNotFound
		}
		if loan.Status != storage.LoanStatusActive {
			return storage.ErrLoanNotActive
		}

		if _, err := debitSwop(ctx, tx, loan.UserID, loan.TotalAmount, input.Now); err != nil {
			return err
		}

		loan.Status = storage.LoanStatusCompleted
		loan.CompletedAt = input.Now
		loan.RepaidAmount = loan.TotalAmount
		_, err = tx.ExecContext(ctx, `
UPDATE loans SET status = ?, completed_at = ?, repaid_amount = ? WHERE id = ?
`, loan.Status, toMillis(loan.CompletedAt), loan.RepaidAmount, loan.ID)
		if err != nil {
			return fmt.Errorf("close loan: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
UPDATE users SET active_loan = 0, completed_loans = completed_loans + 1, updated_at = ?
WHERE id = ?
`, toMillis(input.Now), loan.UserID)
		if err != nil {
			return fmt.Errorf("clear active loan: %w", err)
		}

		_, err = insertTransaction(ctx, tx, storage.Transaction{
			ID:          id.MustNewID(),
			UserID:      loan.UserID,
			Type:        storage.TransactionTypeRepayment,
			Amount:      -loan.TotalAmount,
			Description: input.Description,
			Status:      storage.TransactionStatusCompleted,
			LoanID:      loan.ID,
			CreatedAt:   input.Now,
		})
		if err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"loan_id": loan.ID,
			"user_id": loan.UserID,
			"amount":  loan.Amount,
			"urgency": input.Urgency,
		})
		if err != nil {
			return fmt.Errorf("marshal repaid event: %w", err)
		}
		err = enqueueOutboxTx(ctx, tx, storage.OutboxEvent{
			ID:          id.MustNewID(),
			EventType:   storage.EventLoanRepaid,
			PayloadJSON: string(payload),
			DedupeKey:   storage.EventLoanRepaid + ":" + loan.ID,
			CreatedAt:   input.Now,
		})
		if err != nil {
			return err
		}

		repaid = loan
		return nil
	})
	if err != nil {
		return storage.Loan{}, err
	}
	return repaid, nil
}

// GetLoan returns one loan by id.
func (s *Store) GetLoan(ctx context.Context, loanID string) (storage.Loan, error) {
	if err := ctx.Err(); err != nil {
		return storage.Loan{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Loan{}, fmt.Errorf("storage is not configured")
	}
	loanID = strings.TrimSpace(loanID)
	if loanID == "" {
		return storage.Loan{}, fmt.Errorf("loan id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, loanID)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Loan{}, storage.ErrNotFound
		}
		return storage.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

// GetActiveLoan returns the borrower's single active loan, if any.
func (s *Store) GetActiveLoan(ctx context.Context, userID string) (storage.Loan, error) {
	if err := ctx.Err(); err != nil {
		return storage.Loan{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Loan{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.Loan{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+loanColumns+` FROM loans WHERE user_id = ? AND status = ?
`, userID, storage.LoanStatusActive)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Loan{}, storage.ErrNotFound
		}
		return storage.Loan{}, fmt.Errorf("get active loan: %w", err)
	}
	return loan, nil
}

// ListLoans lists a borrower's loans newest-first.
func (s *Store) ListLoans(ctx context.Context, userID string, limit int) ([]storage.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+loanColumns+` FROM loans WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	loans := make([]storage.Loan, 0, limit)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return loans, nil
}

// SweepOverdueLoans marks active loans past due as defaulted and queues a
// defaulted event per loan.
func (s *Store) SweepOverdueLoans(ctx context.Context, now time.Time) ([]storage.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var defaulted []storage.Loan
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT `+loanColumns+` FROM loans WHERE status = ? AND due_date < ? ORDER BY due_date ASC
`, storage.LoanStatusActive, toMillis(now))
		if err != nil {
			return fmt.Errorf("find overdue loans: %w", err)
		}
		overdue := make([]storage.Loan, 0)
		for rows.Next() {
			loan, err := scanLoan(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan overdue loan: %w", err)
			}
			overdue = append(overdue, loan)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate overdue loans: %w", err)
		}
		rows.Close()

		for _, loan := range overdue {
			loan.Status = storage.LoanStatusDefaulted
			_, err := tx.ExecContext(ctx, `
UPDATE loans SET status = ? WHERE id = ?
`, loan.Status, loan.ID)
			if err != nil {
				return fmt.Errorf("default loan: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
UPDATE users SET active_loan = 0, updated_at = ? WHERE id = ?
`, toMillis(now), loan.UserID)
			if err != nil {
				return fmt.Errorf("clear defaulted loan flag: %w", err)
			}

			payload, err := json.Marshal(map[string]any{
				"loan_id": loan.ID,
				"user_id": loan.UserID,
				"amount":  loan.Amount,
			})
			if err != nil {
				return fmt.Errorf("marshal defaulted event: %w", err)
			}
			err = enqueueOutboxTx(ctx, tx, storage.OutboxEvent{
				ID:          id.MustNewID(),
				EventType:   storage.EventLoanDefaulted,
				PayloadJSON: string(payload),
				DedupeKey:   storage.EventLoanDefaulted + ":" + loan.ID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			defaulted = append(defaulted, loan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defaulted, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swoplabs/swopcredit/internal/platform/id"
	"github.com/swoplabs/swopcredit/internal/services/account/tier"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const outboxColumns = `
	id,
	event_type,
	payload_json,
	dedupe_key,
	status,
	attempt_count,
	next_attempt_at,
	lease_owner,
	lease_expires_at,
	last_error,
	processed_at,
	created_at,
	updated_at
`

func scanOutboxEvent(scan rowScanner) (storage.OutboxEvent, error) {
	var e storage.OutboxEvent
	var nextAttemptAt, createdAt, updatedAt int64
	var leaseOwner sql.NullString
	var leaseExpires, processedAt sql.NullInt64
	err := scan.Scan(
		&e.ID,
		&e.EventType,
		&e.PayloadJSON,
		&e.DedupeKey,
		&e.Status,
		&e.AttemptCount,
		&nextAttemptAt,
		&leaseOwner,
		&leaseExpires,
		&e.LastError,
		&processedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return storage.OutboxEvent{}, err
	}
	e.NextAttemptAt = fromMillis(nextAttemptAt)
	if leaseOwner.Valid {
		e.LeaseOwner = leaseOwner.String
	}
	if leaseExpires.Valid {
		e.LeaseExpires = fromMillis(leaseExpires.Int64)
	}
	if processedAt.Valid {
		e.ProcessedAt = fromMillis(processedAt.Int64)
	}
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updatedAt)
	return e, nil
}

// enqueueOutboxTx inserts an event inside an already-open transaction so
// producers can commit the event with the state change that caused it.
// Duplicate dedupe keys are dropped silently.
func enqueueOutboxTx(ctx context.Context, tx *sql.Tx, event storage.OutboxEvent) error {
	if event.ID == "" {
		event.ID = id.MustNewID()
	}
	if event.Status == "" {
		event.Status = storage.OutboxStatusPending
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.NextAttemptAt.IsZero() {
		event.NextAttemptAt = event.CreatedAt
	}

	_, err := tx.ExecContext(ctx, `
INSERT INTO outbox (
	id, event_type, payload_json, dedupe_key, status,
	attempt_count, next_attempt_at, last_error, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, 0, ?, '', ?, ?)
`,
		event.ID,
		event.EventType,
		event.PayloadJSON,
		event.DedupeKey,
		event.Status,
		toMillis(event.NextAttemptAt),
		toMillis(event.CreatedAt),
		toMillis(event.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// EnqueueOutboxEvent queues one event outside any caller transaction.
func (s *Store) EnqueueOutboxEvent(ctx context.Context, event storage.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(event.EventType) == "" {
		return fmt.Errorf("event type is required")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return enqueueOutboxTx(ctx, tx, event)
	})
}

// LeaseOutboxEvents claims up to limit due events for one consumer.
// Expired leases are reclaimed, so a crashed worker's events become
// available again after the TTL.
func (s *Store) LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]storage.OutboxEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return nil, fmt.Errorf("consumer is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if leaseTTL <= 0 {
		return nil, fmt.Errorf("lease ttl must be positive")
	}

	var leased []storage.OutboxEvent
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT `+outboxColumns+`
FROM outbox
WHERE next_attempt_at <= ?
  AND (status = ? OR (status = ? AND lease_expires_at < ?))
ORDER BY next_attempt_at ASC
LIMIT ?
`, toMillis(now), storage.OutboxStatusPending, storage.OutboxStatusLeased, toMillis(now), limit)
		if err != nil {
			return fmt.Errorf("find due events: %w", err)
		}
		due := make([]storage.OutboxEvent, 0, limit)
		for rows.Next() {
			event, err := scanOutboxEvent(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox event: %w", err)
			}
			due = append(due, event)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate due events: %w", err)
		}
		rows.Close()

		expiry := now.Add(leaseTTL)
		for _, event := range due {
			event.Status = storage.OutboxStatusLeased
			event.LeaseOwner = consumer
			event.LeaseExpires = expiry
			event.AttemptCount++
			event.UpdatedAt = now
			_, err := tx.ExecContext(ctx, `
UPDATE outbox SET status = ?, lease_owner = ?, lease_expires_at = ?,
	attempt_count = ?, updated_at = ?
WHERE id = ?
`,
				event.Status,
				event.LeaseOwner,
				toMillis(event.LeaseExpires),
				event.AttemptCount,
				toMillis(event.UpdatedAt),
				event.ID,
			)
			if err != nil {
				return fmt.Errorf("lease event: %w", err)
			}
			leased = append(leased, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return leased, nil
}

// CompleteOutboxEvent marks one leased event processed.
func (s *Store) CompleteOutboxEvent(ctx context.Context, eventID string, consumer string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE outbox SET status = ?, processed_at = ?, last_error = '', updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?
`,
		storage.OutboxStatusProcessed,
		toMillis(now),
		toMillis(now),
		strings.TrimSpace(eventID),
		storage.OutboxStatusLeased,
		strings.TrimSpace(consumer),
	)
	if err != nil {
		return fmt.Errorf("complete outbox event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check outbox completion: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FailOutboxEvent records a failed attempt. Permanent failures leave the
// retry queue, transient ones return to pending at retryAt.
func (s *Store) FailOutboxEvent(ctx context.Context, eventID string, consumer string, lastError string, retryAt time.Time, permanent bool, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	status := storage.OutboxStatusPending
	if permanent {
		status = storage.OutboxStatusFailed
	}
	if retryAt.IsZero() {
		retryAt = now
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE outbox SET status = ?, next_attempt_at = ?, last_error = ?,
	lease_owner = NULL, lease_expires_at = NULL, updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?
`,
		status,
		toMillis(retryAt),
		lastError,
		toMillis(now),
		strings.TrimSpace(eventID),
		storage.OutboxStatusLeased,
		strings.TrimSpace(consumer),
	)
	if err != nil {
		return fmt.Errorf("fail outbox event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check outbox failure: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GrantXP adds experience to a profile, recomputes its tier and loan limit,
// and appends the reward ledger row in one transaction.
func (s *Store) GrantXP(ctx context.Context, input storage.GrantXPInput) (storage.Profile, error) {
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return storage.Profile{}, fmt.Errorf("user id is required")
	}
	if input.XP <= 0 {
		return storage.Profile{}, fmt.Errorf("xp grant must be positive")
	}
	if input.Now.IsZero() {
		input.Now = time.Now().UTC()
	}

	var updated storage.Profile
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE id = ?`, input.UserID)
		profile, err := scanProfile(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("load profile: %w", err)
		}

		profile.XP += input.XP
		profile.Tier = tier.ForXP(profile.XP)
		profile.LoanLimit = tier.LoanLimit(profile.Tier)
		profile.UpdatedAt = input.Now.UTC()

		_, err = tx.ExecContext(ctx, `
UPDATE users SET xp = ?, tier = ?, loan_limit = ?, updated_at = ? WHERE id = ?
`,
			profile.XP,
			string(profile.Tier),
			profile.LoanLimit,
			toMillis(profile.UpdatedAt),
			profile.ID,
		)
		if err != nil {
			return fmt.Errorf("apply xp grant: %w", err)
		}

		_, err = insertTransaction(ctx, tx, storage.Transaction{
			ID:          id.MustNewID(),
			UserID:      profile.ID,
			Type:        storage.TransactionTypeXPReward,
			Amount:      0,
			Description: input.Description,
			Status:      storage.TransactionStatusCompleted,
			LoanID:      input.LoanID,
			XPEarned:    input.XP,
			CreatedAt:   input.Now,
		})
		if err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return storage.Profile{}, err
	}
	return updated, nil
}

// RecordAttempt appends one worker attempt audit row.
func (s *Store) RecordAttempt(ctx context.Context, attempt storage.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO worker_attempts (
	event_id, event_type, consumer, outcome, attempt_count, last_error, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		attempt.EventID,
		attempt.EventType,
		attempt.Consumer,
		attempt.Outcome,
		attempt.AttemptCount,
		attempt.LastError,
		toMillis(attempt.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts lists recent worker attempts newest-first.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]storage.AttemptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT event_id, event_type, consumer, outcome, attempt_count, last_error, created_at
FROM worker_attempts
ORDER BY id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]storage.AttemptRecord, 0, limit)
	for rows.Next() {
		var attempt storage.AttemptRecord
		var createdAt int64
		err := rows.Scan(
			&attempt.EventID,
			&attempt.EventType,
			&attempt.Consumer,
			&attempt.Outcome,
			&attempt.AttemptCount,
			&attempt.LastError,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		attempt.CreatedAt = fromMillis(createdAt)
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

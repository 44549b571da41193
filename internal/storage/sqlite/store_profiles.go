package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swoplabs/swopcredit/internal/services/account/tier"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const profileColumns = `
	id,
	email,
	username,
	password_hash,
	avatar_url,
	theme,
	dark_mode,
	xp,
	tier,
	loan_limit,
	balance,
	swop_balance,
	completed_loans,
	active_loan,
	created_at,
	updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(scan rowScanner) (storage.Profile, error) {
	var p storage.Profile
	var tierValue string
	var darkMode, activeLoan int64
	var createdAt, updatedAt int64
	err := scan.Scan(
		&p.ID,
		&p.Email,
		&p.Username,
		&p.PasswordHash,
		&p.AvatarURL,
		&p.Theme,
		&darkMode,
		&p.XP,
		&tierValue,
		&p.LoanLimit,
		&p.Balance,
		&p.SwopBalance,
		&p.CompletedLoans,
		&activeLoan,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return storage.Profile{}, err
	}
	p.Tier = tier.Tier(tierValue)
	p.DarkMode = darkMode != 0
	p.ActiveLoan = activeLoan != 0
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// CreateProfile persists a signup profile document.
func (s *Store) CreateProfile(ctx context.Context, profile storage.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(profile.ID) == "" {
		return fmt.Errorf("profile id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (
	id, email, username, password_hash, avatar_url, theme, dark_mode,
	xp, tier, loan_limit, balance, swop_balance, completed_loans,
	active_loan, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		profile.ID,
		profile.Email,
		profile.Username,
		profile.PasswordHash,
		profile.AvatarURL,
		profile.Theme,
		boolToInt(profile.DarkMode),
		profile.XP,
		string(profile.Tier),
		profile.LoanLimit,
		profile.Balance,
		profile.SwopBalance,
		profile.CompletedLoans,
		boolToInt(profile.ActiveLoan),
		toMillis(profile.CreatedAt),
		toMillis(profile.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// GetProfile returns one profile by user id.
func (s *Store) GetProfile(ctx context.Context, userID string) (storage.Profile, error) {
	return s.getProfileBy(ctx, "id", strings.TrimSpace(userID))
}

// GetProfileByUsername returns one profile by canonical username.
func (s *Store) GetProfileByUsername(ctx context.Context, username string) (storage.Profile, error) {
	return s.getProfileBy(ctx, "username", strings.ToLower(strings.TrimSpace(username)))
}

// GetProfileByEmail returns one profile by email address.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (storage.Profile, error) {
	return s.getProfileBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) getProfileBy(ctx context.Context, column string, value string) (storage.Profile, error) {
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Profile{}, fmt.Errorf("storage is not configured")
	}
	if value == "" {
		return storage.Profile{}, fmt.Errorf("%s is required", column)
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE `+column+` = ?`, value)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Profile{}, storage.ErrNotFound
		}
		return storage.Profile{}, fmt.Errorf("get profile by %s: %w", column, err)
	}
	return profile, nil
}

// UpdatePreferences applies display-setting changes in one guarded write.
//
// The whole update runs transactionally so two concurrent preference saves
// from different devices cannot interleave partial field sets.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, update storage.PreferenceUpdate, now time.Time) (storage.Profile, error) {
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.Profile{}, fmt.Errorf("user id is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var updated storage.Profile
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE id = ?`, userID)
		profile, err := scanProfile(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("load profile: %w", err)
		}

		if update.Theme != nil {
			profile.Theme = strings.TrimSpace(*update.Theme)
		}
		if update.DarkMode != nil {
			profile.DarkMode = *update.DarkMode
		}
		if update.Username != nil {
			profile.Username = strings.ToLower(strings.TrimSpace(*update.Username))
		}
		profile.UpdatedAt = now.UTC()

		_, err = tx.ExecContext(ctx, `
UPDATE users SET theme = ?, dark_mode = ?, username = ?, updated_at = ? WHERE id = ?
`,
			profile.Theme,
			boolToInt(profile.DarkMode),
			profile.Username,
			toMillis(profile.UpdatedAt),
			userID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("update preferences: %w", err)
		}
		updated = profile
		return nil
	})
	if err != nil {
		return storage.Profile{}, err
	}
	return updated, nil
}

// SaveAvatar persists an avatar export and its history row atomically.
func (s *Store) SaveAvatar(ctx context.Context, record storage.AvatarRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.UserID = strings.TrimSpace(record.UserID)
	record.URL = strings.TrimSpace(record.URL)
	if record.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if record.URL == "" {
		return fmt.Errorf("avatar url is required")
	}
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now().UTC()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
UPDATE users SET avatar_url = ?, updated_at = ? WHERE id = ?
`, record.URL, toMillis(record.SavedAt), record.UserID)
		if err != nil {
			return fmt.Errorf("update profile avatar: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check profile avatar update: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO avatar_history (user_id, url, preview_url, saved_at) VALUES (?, ?, ?, ?)
`, record.UserID, record.URL, record.PreviewURL, toMillis(record.SavedAt))
		if err != nil {
			return fmt.Errorf("append avatar history: %w", err)
		}
		return nil
	})
}

// ListAvatarHistory lists newest-first saved avatars for a user.
func (s *Store) ListAvatarHistory(ctx context.Context, userID string, limit int) ([]storage.AvatarRecord, error) {
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
SELECT user_id, url, preview_url, saved_at
FROM avatar_history
WHERE user_id = ?
ORDER BY saved_at DESC, id DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list avatar history: %w", err)
	}
	defer rows.Close()

	records := make([]storage.AvatarRecord, 0, limit)
	for rows.Next() {
		var record storage.AvatarRecord
		var savedAt int64
		if err := rows.Scan(&record.UserID, &record.URL, &record.PreviewURL, &savedAt); err != nil {
			return nil, fmt.Errorf("scan avatar history row: %w", err)
		}
		record.SavedAt = fromMillis(savedAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate avatar history: %w", err)
	}
	return records, nil
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

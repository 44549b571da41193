// Package storage defines persistence contracts for SwopCredit state.
//
// A single SQLite file backs all collections so balance mutations, ledger
// appends, and loan state changes can share one transaction boundary.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/swoplabs/swopcredit/internal/services/account/tier"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientBalance indicates a debit larger than the available balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrActiveLoanExists indicates the borrower already holds an active loan.
var ErrActiveLoanExists = errors.New("active loan already exists")

// ErrLoanNotActive indicates a repayment targeted a non-active loan.
var ErrLoanNotActive = errors.New("loan is not active")

// ErrInvalidPageToken indicates an undecodable or mismatched page token.
var ErrInvalidPageToken = errors.New("invalid page token")

// Profile stores one per-user game-state document.
type Profile struct {
	ID             string
	Email          string
	Username       string
	PasswordHash   string
	AvatarURL      string
	Theme          string
	DarkMode       bool
	XP             int64
	Tier           tier.Tier
	LoanLimit      int64
	Balance        int64
	SwopBalance    int64
	CompletedLoans int64
	ActiveLoan     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PreferenceUpdate carries the optional display settings a user may change.
// Nil fields are left untouched.
type PreferenceUpdate struct {
	Theme    *string
	DarkMode *bool
	Username *string
}

// AvatarRecord stores one saved avatar export.
type AvatarRecord struct {
	UserID     string
	URL        string
	PreviewURL string
	SavedAt    time.Time
}

// Transaction type identifiers match the original ledger vocabulary.
const (
	TransactionTypeLoan         = "loan"
	TransactionTypeRepayment    = "repayment"
	TransactionTypeSwopSend     = "swop_send"
	TransactionTypeSwopReceive  = "swop_receive"
	TransactionTypeSwopAdd      = "swop_add"
	TransactionTypeSwopWithdraw = "swop_withdraw"
	TransactionTypeXPReward     = "xp_reward"
)

// Transaction status values.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction stores one immutable balance-affecting ledger row.
type Transaction struct {
	ID             string
	Seq            int64
	UserID         string
	Type           string
	Amount         int64
	Description    string
	Status         string
	CounterpartyID string
	LoanID         string
	XPEarned       int64
	CreatedAt      time.Time
}

// TransactionPage stores one page of newest-first ledger rows.
type TransactionPage struct {
	Transactions  []Transaction
	NextPageToken string
}

// TransactionFilter narrows ledger reads. SQL and Params come from the
// AIP-160 translation layer; both empty means no filtering.
type TransactionFilter struct {
	SQL    string
	Params []any
	// Raw is the original filter expression, hashed into page tokens.
	Raw string
}

// Loan status values.
const (
	LoanStatusPending   = "pending"
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusDefaulted = "defaulted"
)

// Loan stores one 72-hour-cycle loan.
type Loan struct {
	ID            string
	UserID        string
	Amount        int64
	InitiationFee int64
	TotalAmount   int64
	Status        string
	CreatedAt     time.Time
	DueDate       time.Time
	CompletedAt   time.Time
	RepaidAmount  int64
}

// Outbox event types emitted by the stores and consumed by the worker.
const (
	EventUserSignedUp  = "user.signed_up"
	EventLoanRepaid    = "loan.repaid"
	EventLoanDefaulted = "loan.defaulted"
)

// Outbox event status values.
const (
	OutboxStatusPending   = "pending"
	OutboxStatusLeased    = "leased"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// OutboxEvent stores one integration event awaiting worker processing.
type OutboxEvent struct {
	ID            string
	EventType     string
	PayloadJSON   string
	DedupeKey     string
	Status        string
	AttemptCount  int
	NextAttemptAt time.Time
	LeaseOwner    string
	LeaseExpires  time.Time
	LastError     string
	ProcessedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AttemptRecord stores one worker processing attempt for auditability.
type AttemptRecord struct {
	EventID      string
	EventType    string
	Consumer     string
	Outcome      string
	AttemptCount int
	LastError    string
	CreatedAt    time.Time
}

// ProfileStore persists per-user profile documents.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, userID string) (Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, error)
	UpdatePreferences(ctx context.Context, userID string, update PreferenceUpdate, now time.Time) (Profile, error)
}

// AvatarStore persists avatar exports alongside the owning profile.
type AvatarStore interface {
	SaveAvatar(ctx context.Context, record AvatarRecord) error
	ListAvatarHistory(ctx context.Context, userID string, limit int) ([]AvatarRecord, error)
}

// WalletStore moves value between profiles and appends matching ledger rows
// inside one transaction per call.
type WalletStore interface {
	TransferSwop(ctx context.Context, input TransferInput) (TransferResult, error)
	AdjustSwop(ctx context.Context, input AdjustInput) (Transaction, int64, error)
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter, pageSize int, pageToken string) (TransactionPage, error)
}

// TransferInput describes one peer-to-peer transfer.
type TransferInput struct {
	SenderID             string
	RecipientID          string
	Amount               int64
	SenderDescription    string
	RecipientDescription string
	Now                  time.Time
}

// TransferResult reports both ledger rows created by a transfer.
type TransferResult struct {
	SenderTransaction    Transaction
	RecipientTransaction Transaction
	SenderBalance        int64
	RecipientBalance     int64
}

// AdjustInput describes one top-up (positive) or withdrawal (negative).
type AdjustInput struct {
	UserID      string
	Amount      int64
	Type        string
	Description string
	Now         time.Time
}

// LoanStore persists loans and their balance side effects.
type LoanStore interface {
	DisburseLoan(ctx context.Context, loan Loan, disbursement int64, description string) (Loan, error)
	RepayLoan(ctx context.Context, input RepayInput) (Loan, error)
	GetLoan(ctx context.Context, loanID string) (Loan, error)
	GetActiveLoan(ctx context.Context, userID string) (Loan, error)
	ListLoans(ctx context.Context, userID string, limit int) ([]Loan, error)
	SweepOverdueLoans(ctx context.Context, now time.Time) ([]Loan, error)
}

// RepayInput describes one loan repayment.
type RepayInput struct {
	LoanID      string
	UserID      string
	Description string
	Urgency     string
	Now         time.Time
}

// OutboxStore queues and leases integration events.
type OutboxStore interface {
	EnqueueOutboxEvent(ctx context.Context, event OutboxEvent) error
	LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]OutboxEvent, error)
	CompleteOutboxEvent(ctx context.Context, id string, consumer string, now time.Time) error
	FailOutboxEvent(ctx context.Context, id string, consumer string, lastError string, retryAt time.Time, permanent bool, now time.Time) error
}

// RewardStore applies XP grants and their ledger rows atomically.
type RewardStore interface {
	GrantXP(ctx context.Context, input GrantXPInput) (Profile, error)
}

// GrantXPInput describes one XP grant applied by the worker.
type GrantXPInput struct {
	UserID      string
	XP          int64
	LoanID      string
	Description string
	Now         time.Time
}

// AttemptStore records worker processing attempts.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt AttemptRecord) error
	ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
}

// Package view maps storage records to the JSON shapes the API returns.
package view

import (
	"time"

	"github.com/swoplabs/swopcredit/internal/storage"
)

// Profile is the JSON shape for a user profile.
type Profile struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Theme          string `json:"theme"`
	DarkMode       bool   `json:"dark_mode"`
	XP             int64  `json:"xp"`
	Tier           string `json:"tier"`
	LoanLimit      int64  `json:"loan_limit"`
	Balance        int64  `json:"balance"`
	SwopBalance    int64  `json:"swop_balance"`
	CompletedLoans int64  `json:"completed_loans"`
	ActiveLoan     bool   `json:"active_loan"`
	CreatedAt      string `json:"created_at"`
}

// NewProfile converts a storage profile.
func NewProfile(p storage.Profile) Profile {
	return Profile{
		ID:             p.ID,
		Email:          p.Email,
		Username:       p.Username,
		AvatarURL:      p.AvatarURL,
		Theme:          p.Theme,
		DarkMode:       p.DarkMode,
		XP:             p.XP,
		Tier:           string(p.Tier),
		LoanLimit:      p.LoanLimit,
		Balance:        p.Balance,
		SwopBalance:    p.SwopBalance,
		CompletedLoans: p.CompletedLoans,
		ActiveLoan:     p.ActiveLoan,
		CreatedAt:      formatTime(p.CreatedAt),
	}
}

// Transaction is the JSON shape for one ledger row.
type Transaction struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	LoanID         string `json:"loan_id,omitempty"`
	XPEarned       int64  `json:"xp_earned,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// NewTransaction converts a storage transaction.
func NewTransaction(tx storage.Transaction) Transaction {
	return Transaction{
		ID:             tx.ID,
		Type:           tx.Type,
		Amount:         tx.Amount,
		Description:    tx.Description,
		Status:         tx.Status,
		CounterpartyID: tx.CounterpartyID,
		LoanID:         tx.LoanID,
		XPEarned:       tx.XPEarned,
		CreatedAt:      formatTime(tx.CreatedAt),
	}
}

// NewTransactions converts a slice of ledger rows, never returning nil.
func NewTransactions(txs []storage.Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewTransaction(tx))
	}
	return out
}

// Loan is the JSON shape for one loan.
type Loan struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	InitiationFee int64  `json:"initiation_fee"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	DueDate       string `json:"due_date"`
	CompletedAt   string `json:"completed_at,omitempty"`
	RepaidAmount  int64  `json:"repaid_amount,omitempty"`
}

// NewLoan converts a storage loan.
func NewLoan(loan storage.Loan) Loan {
	out := Loan{
		ID:            loan.ID,
		Amount:        loan.Amount,
		InitiationFee: loan.InitiationFee,
		TotalAmount:   loan.TotalAmount,
		Status:        loan.Status,
		CreatedAt:     formatTime(loan.CreatedAt),
		DueDate:       formatTime(loan.DueDate),
		RepaidAmount:  loan.RepaidAmount,
	}
	if !loan.CompletedAt.IsZero() {
		out.CompletedAt = formatTime(loan.CompletedAt)
	}
	return out
}

// NewLoans converts a slice of loans, never returning nil.
func NewLoans(loans []storage.Loan) []Loan {
	out := make([]Loan, 0, len(loans))
	for _, loan := range loans {
		out = append(out, NewLoan(loan))
	}
	return out
}

// Avatar is the JSON shape for one avatar history entry.
type Avatar struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url,omitempty"`
	SavedAt    string `json:"saved_at"`
}

// NewAvatars converts avatar history records, never returning nil.
func NewAvatars(records []storage.AvatarRecord) []Avatar {
	out := make([]Avatar, 0, len(records))
	for _, record := range records {
		out = append(out, Avatar{
			URL:        record.URL,
			PreviewURL: record.PreviewURL,
			SavedAt:    formatTime(record.SavedAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

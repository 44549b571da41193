package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// LoanReader inspects and prices loans.
type LoanReader interface {
	QuoteLoan(ctx context.Context, userID string, amount int64) (loanservice.Quote, error)
	ActiveStatus(ctx context.Context, userID string) (loanservice.Status, error)
	History(ctx context.Context, userID string, limit int) ([]storage.Loan, error)
}

// LoanQuoteInput prices a prospective loan for a user.
type LoanQuoteInput struct {
	Username string `json:"username" jsonschema:"username of the borrower"`
	Amount   int64  `json:"amount" jsonschema:"principal in rand"`
}

// LoanQuoteResult is the MCP tool output for a loan quote.
type LoanQuoteResult struct {
	Amount        int64 `json:"amount" jsonschema:"principal in rand"`
	InitiationFee int64 `json:"initiation_fee" jsonschema:"fee charged at issue"`
	Disbursement  int64 `json:"disbursement" jsonschema:"net payout after the fee"`
	TotalDue      int64 `json:"total_due" jsonschema:"amount owed at repayment"`
	CycleHours    int   `json:"cycle_hours" jsonschema:"repayment window in hours"`
}

// LoanQuoteTool describes the loan pricing tool.
func LoanQuoteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "loan_quote",
		Description: "Prices a loan for a user without issuing it: fee, net disbursement, and total due within the 72 hour cycle.",
	}
}

// LoanQuoteHandler executes a loan quote.
func LoanQuoteHandler(profiles ProfileDirectory, loans LoanReader) mcp.ToolHandlerFor[LoanQuoteInput, LoanQuoteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LoanQuoteInput) (*mcp.CallToolResult, LoanQuoteResult, error) {
		profile, err := lookupProfile(ctx, profiles, input.Username)
		if err != nil {
			return nil, LoanQuoteResult{}, err
		}
		quote, err := loans.QuoteLoan(ctx, profile.ID, input.Amount)
		if err != nil {
			return nil, LoanQuoteResult{}, fmt.Errorf("quote loan: %w", err)
		}
		return nil, LoanQuoteResult{
			Amount:        quote.Amount,
			InitiationFee: quote.InitiationFee,
			Disbursement:  quote.Disbursement,
			TotalDue:      quote.TotalDue,
			CycleHours:    quote.CycleHours,
		}, nil
	}
}

// LoanActiveInput identifies the borrower to check.
type LoanActiveInput struct {
	Username string `json:"username" jsonschema:"username of the borrower"`
}

// LoanActiveResult is the MCP tool output for an active loan check.
type LoanActiveResult struct {
	HasActive   bool      `json:"has_active" jsonschema:"whether a loan is outstanding"`
	Loan        *LoanInfo `json:"loan,omitempty" jsonschema:"the outstanding loan"`
	Urgency     string    `json:"urgency,omitempty" jsonschema:"countdown bucket (safe, warning, critical)"`
	SecondsLeft int64     `json:"seconds_left,omitempty" jsonschema:"seconds until the due date"`
}

// LoanInfo is one loan record.
type LoanInfo struct {
	ID            string `json:"id" jsonschema:"loan identifier"`
	Amount        int64  `json:"amount" jsonschema:"principal in rand"`
	InitiationFee int64  `json:"initiation_fee" jsonschema:"fee charged at issue"`
	Status        string `json:"status" jsonschema:"loan status (active, repaid, defaulted)"`
	CreatedAt     string `json:"created_at" jsonschema:"issue time, RFC 3339"`
	DueDate       string `json:"due_date" jsonschema:"repayment deadline, RFC 3339"`
}

// LoanActiveTool describes the active loan tool.
func LoanActiveTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "loan_active",
		Description: "Reports a user's outstanding loan with its repayment countdown and urgency bucket.",
	}
}

// LoanActiveHandler executes an active loan check.
func LoanActiveHandler(profiles ProfileDirectory, loans LoanReader) mcp.ToolHandlerFor[LoanActiveInput, LoanActiveResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LoanActiveInput) (*mcp.CallToolResult, LoanActiveResult, error) {
		profile, err := lookupProfile(ctx, profiles, input.Username)
		if err != nil {
			return nil, LoanActiveResult{}, err
		}
		status, err := loans.ActiveStatus(ctx, profile.ID)
		if err != nil {
			return nil, LoanActiveResult{}, fmt.Errorf("active loan: %w", err)
		}
		result := LoanActiveResult{HasActive: status.HasActive}
		if status.HasActive {
			info := newLoanInfo(status.Loan)
			result.Loan = &info
			result.Urgency = status.Urgency
			result.SecondsLeft = int64(status.Remaining.Seconds())
		}
		return nil, result, nil
	}
}

// LoanHistoryInput identifies whose loans to list.
type LoanHistoryInput struct {
	Username string `json:"username" jsonschema:"username of the borrower"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum loans to return"`
}

// LoanHistoryResult is the MCP tool output for loan history.
type LoanHistoryResult struct {
	Loans []LoanInfo `json:"loans" jsonschema:"loans, newest first"`
}

// LoanHistoryTool describes the loan history tool.
func LoanHistoryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "loan_history",
		Description: "Lists a user's past and present loans, newest first.",
	}
}

// LoanHistoryHandler executes a loan history query.
func LoanHistoryHandler(profiles ProfileDirectory, loans LoanReader) mcp.ToolHandlerFor[LoanHistoryInput, LoanHistoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LoanHistoryInput) (*mcp.CallToolResult, LoanHistoryResult, error) {
		profile, err := lookupProfile(ctx, profiles, input.Username)
		if err != nil {
			return nil, LoanHistoryResult{}, err
		}
		records, err := loans.History(ctx, profile.ID, input.Limit)
		if err != nil {
			return nil, LoanHistoryResult{}, fmt.Errorf("list loans: %w", err)
		}
		result := LoanHistoryResult{Loans: make([]LoanInfo, 0, len(records))}
		for _, record := range records {
			result.Loans = append(result.Loans, newLoanInfo(record))
		}
		return nil, result, nil
	}
}

func newLoanInfo(loan storage.Loan) LoanInfo {
	return LoanInfo{
		ID:            loan.ID,
		Amount:        loan.Amount,
		InitiationFee: loan.InitiationFee,
		Status:        loan.Status,
		CreatedAt:     loan.CreatedAt.UTC().Format(time.RFC3339),
		DueDate:       loan.DueDate.UTC().Format(time.RFC3339),
	}
}

package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// LedgerReader pages through a user's transaction history.
type LedgerReader interface {
	Ledger(ctx context.Context, userID string, filterExpr string, pageSize int, pageToken string) (storage.TransactionPage, error)
}

// LedgerListInput identifies whose ledger to read and how.
type LedgerListInput struct {
	Username  string `json:"username" jsonschema:"username of the account"`
	Filter    string `json:"filter,omitempty" jsonschema:"AIP-160 filter, e.g. type = \"repayment\" AND amount > 100"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"rows per page"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// LedgerListResult is the MCP tool output for a ledger query.
type LedgerListResult struct {
	Transactions  []LedgerEntry `json:"transactions" jsonschema:"ledger rows, newest first"`
	NextPageToken string        `json:"next_page_token,omitempty" jsonschema:"token for the next page"`
}

// LedgerEntry is one ledger row.
type LedgerEntry struct {
	ID          string `json:"id" jsonschema:"transaction identifier"`
	Type        string `json:"type" jsonschema:"transaction type (loan, repayment, transfer_in, transfer_out, deposit, withdrawal, reward)"`
	Amount      int64  `json:"amount" jsonschema:"amount in rand, negative for debits"`
	Description string `json:"description" jsonschema:"human readable description"`
	Status      string `json:"status" jsonschema:"transaction status"`
	LoanID      string `json:"loan_id,omitempty" jsonschema:"related loan identifier"`
	XPEarned    int64  `json:"xp_earned,omitempty" jsonschema:"XP granted with this row"`
	CreatedAt   string `json:"created_at" jsonschema:"row time, RFC 3339"`
}

// LedgerListTool describes the ledger query tool.
func LedgerListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ledger_list",
		Description: "Lists a user's wallet ledger with optional AIP-160 filtering and pagination.",
	}
}

// LedgerListHandler executes a ledger query.
func LedgerListHandler(profiles ProfileDirectory, ledger LedgerReader) mcp.ToolHandlerFor[LedgerListInput, LedgerListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LedgerListInput) (*mcp.CallToolResult, LedgerListResult, error) {
		profile, err := lookupProfile(ctx, profiles, input.Username)
		if err != nil {
			return nil, LedgerListResult{}, err
		}
		page, err := ledger.Ledger(ctx, profile.ID, input.Filter, input.PageSize, input.PageToken)
		if err != nil {
			return nil, LedgerListResult{}, fmt.Errorf("list ledger: %w", err)
		}
		result := LedgerListResult{
			Transactions:  make([]LedgerEntry, 0, len(page.Transactions)),
			NextPageToken: page.NextPageToken,
		}
		for _, tx := range page.Transactions {
			result.Transactions = append(result.Transactions, LedgerEntry{
				ID:          tx.ID,
				Type:        tx.Type,
				Amount:      tx.Amount,
				Description: tx.Description,
				Status:      tx.Status,
				LoanID:      tx.LoanID,
				XPEarned:    tx.XPEarned,
				CreatedAt:   tx.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}

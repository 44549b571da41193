// Package domain defines the MCP tools exposed over the lending platform:
// profile lookups, ledger queries, and loan inspection for agent clients.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// ProfileDirectory resolves usernames to stored profiles.
type ProfileDirectory interface {
	GetProfileByUsername(ctx context.Context, username string) (storage.Profile, error)
}

// AvatarHistory reads stored avatar exports.
type AvatarHistory interface {
	History(ctx context.Context, userID string, limit int) ([]storage.AvatarRecord, error)
}

// ProfileGetInput identifies the profile to fetch.
type ProfileGetInput struct {
	Username string `json:"username" jsonschema:"username of the account to look up"`
}

// ProfileGetResult is the MCP tool output for a profile lookup.
type ProfileGetResult struct {
	ID             string `json:"id" jsonschema:"user identifier"`
	Username       string `json:"username" jsonschema:"username"`
	XP             int64  `json:"xp" jsonschema:"lifetime experience points"`
	Tier           string `json:"tier" jsonschema:"progression tier (bronze through diamond)"`
	LoanLimit      int64  `json:"loan_limit" jsonschema:"maximum loan principal in rand"`
	Balance        int64  `json:"balance" jsonschema:"cash balance in rand"`
	SwopBalance    int64  `json:"swop_balance" jsonschema:"$SWOP balance"`
	CompletedLoans int64  `json:"completed_loans" jsonschema:"number of repaid loans"`
	ActiveLoan     bool   `json:"active_loan" jsonschema:"whether a loan is outstanding"`
	AvatarURL      string `json:"avatar_url,omitempty" jsonschema:"confirmed avatar model URL"`
	CreatedAt      string `json:"created_at" jsonschema:"signup time, RFC 3339"`
}

// ProfileGetTool describes the profile lookup tool.
func ProfileGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "profile_get",
		Description: "Fetches a user's profile with progression tier, XP, balances, and loan limit.",
	}
}

// ProfileGetHandler executes a profile lookup.
func ProfileGetHandler(profiles ProfileDirectory) mcp.ToolHandlerFor[ProfileGetInput, ProfileGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileGetInput) (*mcp.CallToolResult, ProfileGetResult, error) {
		profile, err := lookupProfile(ctx, profiles, input.Username)
		if err != nil {
			return nil, ProfileGetResult{}, err
		}
		return nil, ProfileGetResult{
			ID:             profile.ID,
			Username:       profile.Username,
			XP:             profile.XP,
			Tier:           string(profile.Tier),
			LoanLimit:      profile.LoanLimit,
			Balance:        profile.Balance,
			SwopBalance:    profile.SwopBalance,
			CompletedLoans: profile.CompletedLoans,
			ActiveLoan:     profile.ActiveLoan,
			AvatarURL:      profile.AvatarURL,
			CreatedAt:      profile.CreatedAt.UTC().Format(time.RFC3339),
		}, nil
	}
}

// AvatarHistoryInput identifies whose avatar history to list.
type AvatarHistoryInput struct {
	Username string `json:"username" jsonschema:"username of the account"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum records to return"`
}

// AvatarHistoryResult is the MCP tool output for avatar history.
type AvatarHistoryResult struct {
	Avatars []AvatarEntry `json:"avatars" jsonschema:"saved avatar exports, newest first"`
}

// AvatarEntry is one saved avatar export.
type AvatarEntry struct {
	URL        string `json:"url" jsonschema:"model URL"`
	PreviewURL string `json:"preview_url,omitempty" jsonschema:"rendered preview image URL"`
	SavedAt    string `json:"saved_at" jsonschema:"save time, RFC 3339"`
}

// AvatarHistoryTool describes the avatar history tool.
func AvatarHistoryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "avatar_history",
		Description: "Lists a user's saved 3D avatar exports, newest first.",
	}
}

// AvatarHistoryHandler executes an avatar history query.
func AvatarHistoryHandler(profiles ProfileDirectory, avatars AvatarHistory) mcp.ToolHandlerFor[AvatarHistoryInput, AvatarHistoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AvatarHistoryInput) (*mcp.CallToolResult, AvatarHistoryResult, error) {
		profile, err := lookupProfile(ctx, profiles, input.Username)
		if err != nil {
			return nil, AvatarHistoryResult{}, err
		}
		records, err := avatars.History(ctx, profile.ID, input.Limit)
		if err != nil {
			return nil, AvatarHistoryResult{}, fmt.Errorf("list avatar history: %w", err)
		}
		result := AvatarHistoryResult{Avatars: make([]AvatarEntry, 0, len(records))}
		for _, record := range records {
			result.Avatars = append(result.Avatars, AvatarEntry{
				URL:        record.URL,
				PreviewURL: record.PreviewURL,
				SavedAt:    record.SavedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}

func lookupProfile(ctx context.Context, profiles ProfileDirectory, username string) (storage.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.Profile{}, fmt.Errorf("username is required")
	}
	profile, err := profiles.GetProfileByUsername(ctx, username)
	if err != nil {
		return storage.Profile{}, fmt.Errorf("look up @%s: %w", username, err)
	}
	return profile, nil
}

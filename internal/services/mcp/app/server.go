// Package app assembles the MCP server over the platform's storage and
// domain services and serves it over stdio.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	avatarservice "github.com/swoplabs/swopcredit/internal/services/avatar"
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
	"github.com/swoplabs/swopcredit/internal/services/mcp/domain"
	walletservice "github.com/swoplabs/swopcredit/internal/services/wallet"
	"github.com/swoplabs/swopcredit/internal/storage/sqlite"
)

const (
	serverName    = "swopcredit"
	serverVersion = "1.0.0"
)

// RuntimeConfig controls MCP server startup.
type RuntimeConfig struct {
	DBPath string
}

// Run opens the store, registers the tools, and serves MCP over stdio until
// ctx is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/swopcredit.db"
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close sqlite store: %v", closeErr)
		}
	}()

	wallets, err := walletservice.NewService(store, store, nil)
	if err != nil {
		return fmt.Errorf("build wallet service: %w", err)
	}
	loans, err := loanservice.NewService(store, store, nil, nil)
	if err != nil {
		return fmt.Errorf("build loan service: %w", err)
	}
	avatars, err := avatarservice.NewService(store, nil)
	if err != nil {
		return fmt.Errorf("build avatar service: %w", err)
	}

	server := NewServer(store, wallets, loans, avatars)

	err = server.Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return err
}

// NewServer builds the MCP server with every platform tool registered.
func NewServer(profiles domain.ProfileDirectory, ledger domain.LedgerReader, loans domain.LoanReader, avatars domain.AvatarHistory) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, domain.ProfileGetTool(), domain.ProfileGetHandler(profiles))
	mcp.AddTool(server, domain.LedgerListTool(), domain.LedgerListHandler(profiles, ledger))
	mcp.AddTool(server, domain.LoanQuoteTool(), domain.LoanQuoteHandler(profiles, loans))
	mcp.AddTool(server, domain.LoanActiveTool(), domain.LoanActiveHandler(profiles, loans))
	mcp.AddTool(server, domain.LoanHistoryTool(), domain.LoanHistoryHandler(profiles, loans))
	mcp.AddTool(server, domain.AvatarHistoryTool(), domain.AvatarHistoryHandler(profiles, avatars))

	return server
}

// Package app assembles the API server from feature modules.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/swoplabs/swopcredit/internal/platform/timeouts"
	"github.com/swoplabs/swopcredit/internal/services/account"
	"github.com/swoplabs/swopcredit/internal/services/account/session"
	"github.com/swoplabs/swopcredit/internal/services/api/live"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	authmodule "github.com/swoplabs/swopcredit/internal/services/api/modules/auth"
	avatarmodule "github.com/swoplabs/swopcredit/internal/services/api/modules/avatar"
	healthmodule "github.com/swoplabs/swopcredit/internal/services/api/modules/health"
	loansmodule "github.com/swoplabs/swopcredit/internal/services/api/modules/loans"
	profilemodule "github.com/swoplabs/swopcredit/internal/services/api/modules/profile"
	walletmodule "github.com/swoplabs/swopcredit/internal/services/api/modules/wallet"
	wsmodule "github.com/swoplabs/swopcredit/internal/services/api/modules/ws"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/httpx"
	avatarservice "github.com/swoplabs/swopcredit/internal/services/avatar"
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
	walletservice "github.com/swoplabs/swopcredit/internal/services/wallet"
	"github.com/swoplabs/swopcredit/internal/storage/sqlite"
)

// RuntimeConfig controls API server startup.
type RuntimeConfig struct {
	Addr        string
	DBPath      string
	SessionSeed string
	SessionTTL  time.Duration
}

const (
	defaultAPIAddr = ":8080"
	defaultAPIDB   = "data/swopcredit.db"
)

// Run starts the API server and blocks until ctx is canceled or the listener
// fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaultAPIAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultAPIDB
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
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

	sessions, err := session.NewManager(cfg.SessionSeed, cfg.SessionTTL, nil)
	if err != nil {
		return fmt.Errorf("build session manager: %w", err)
	}
	accounts, err := account.NewService(store, store, nil)
	if err != nil {
		return fmt.Errorf("build account service: %w", err)
	}
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

	hub := live.NewHub()
	handler, err := Compose(ComposeInput{
		Authenticate: sessions.Verify,
		PublicModules: []module.Module{
			healthmodule.New(),
			authmodule.New(accounts, sessions),
			avatarmodule.NewCallback(avatars, sessions.Verify),
			wsmodule.New(loans, hub, sessions.Verify),
		},
		ProtectedModules: []module.Module{
			profilemodule.New(accounts, avatars),
			walletmodule.New(wallets, hub),
			loansmodule.New(loans),
			avatarmodule.New(avatars),
		},
	})
	if err != nil {
		return fmt.Errorf("compose modules: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpx.Chain(handler, httpx.RequestID(), httpx.RecoverPanic()),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.Printf("api server listening at %s", cfg.Addr)

	select {
	case err := <-serveErr:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

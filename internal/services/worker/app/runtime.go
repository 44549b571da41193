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
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
	workerdomain "github.com/swoplabs/swopcredit/internal/services/worker/domain"
	"github.com/swoplabs/swopcredit/internal/storage"
	"github.com/swoplabs/swopcredit/internal/storage/sqlite"
)

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Addr          string
	DBPath        string
	Consumer      string
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
	SweepInterval time.Duration
}

const (
	defaultWorkerAddr    = ":8090"
	defaultWorkerDB      = "data/swopcredit.db"
	defaultSweepInterval = time.Minute
)

// Run starts worker runtime dependencies and the background processing loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaultWorkerAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create worker storage dir: %w", err)
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

	loans, err := loanservice.NewService(store, store, nil, nil)
	if err != nil {
		return fmt.Errorf("build loan service: %w", err)
	}

	loopConfig := Config{
		Consumer:      cfg.Consumer,
		PollInterval:  cfg.PollInterval,
		LeaseTTL:      cfg.LeaseTTL,
		MaxAttempts:   cfg.MaxAttempts,
		RetryBackoff:  cfg.RetryBackoff,
		RetryMaxDelay: cfg.RetryMaxDelay,
	}
	normalizedLoopConfig := loopConfig.normalized()

	workerLoop, err := New(
		store,
		map[string]EventHandler{
			storage.EventLoanRepaid:    workerdomain.NewRepaidRewardHandler(store, nil),
			storage.EventUserSignedUp:  workerdomain.NewSignupWelcomeHandler(store, nil),
			storage.EventLoanDefaulted: workerdomain.NewDefaultedNoticeHandler(nil),
		},
		newAttemptStoreRecorder(store, normalizedLoopConfig.Consumer),
		normalizedLoopConfig,
		nil,
	)
	if err != nil {
		return fmt.Errorf("build worker loop: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	healthServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- healthServer.ListenAndServe()
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if shutdownErr := healthServer.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Printf("shutdown worker health server: %v", shutdownErr)
		}
		if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("worker health server: %v", err)
		}
	}()

	go sweepOverdueLoans(ctx, loans, cfg.SweepInterval)

	log.Printf("worker health server listening at %s", cfg.Addr)
	return workerLoop.Run(ctx)
}

// sweepOverdueLoans marks active loans past due as defaulted on a fixed
// interval until ctx is canceled.
func sweepOverdueLoans(ctx context.Context, loans *loanservice.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		defaulted, err := loans.SweepOverdue(ctx)
		if err != nil {
			log.Printf("sweep overdue loans: %v", err)
		} else if len(defaulted) > 0 {
			log.Printf("marked %d overdue loans as defaulted", len(defaulted))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/swoplabs/swopcredit/internal/platform/cmd"
	workerserver "github.com/swoplabs/swopcredit/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	Addr          string        `env:"SWOPCREDIT_WORKER_ADDR" envDefault:":8090"`
	DBPath        string        `env:"SWOPCREDIT_WORKER_DB_PATH" envDefault:"data/swopcredit.db"`
	Consumer      string        `env:"SWOPCREDIT_WORKER_CONSUMER" envDefault:"swopcredit-worker"`
	PollInterval  time.Duration `env:"SWOPCREDIT_WORKER_POLL_INTERVAL" envDefault:"1s"`
	LeaseTTL      time.Duration `env:"SWOPCREDIT_WORKER_LEASE_TTL" envDefault:"30s"`
	MaxAttempts   int           `env:"SWOPCREDIT_WORKER_MAX_ATTEMPTS" envDefault:"5"`
	RetryBackoff  time.Duration `env:"SWOPCREDIT_WORKER_RETRY_BACKOFF" envDefault:"2s"`
	RetryMaxDelay time.Duration `env:"SWOPCREDIT_WORKER_RETRY_MAX_DELAY" envDefault:"5m"`
	SweepInterval time.Duration `env:"SWOPCREDIT_WORKER_SWEEP_INTERVAL" envDefault:"1m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The worker health HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.Consumer, "consumer", cfg.Consumer, "Outbox consumer name")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Outbox poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Outbox lease duration")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Maximum processing attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "Maximum retry delay")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Overdue loan sweep interval")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(context.Context) error {
		return workerserver.Run(ctx, workerserver.RuntimeConfig{
			Addr:          cfg.Addr,
			DBPath:        cfg.DBPath,
			Consumer:      cfg.Consumer,
			PollInterval:  cfg.PollInterval,
			LeaseTTL:      cfg.LeaseTTL,
			MaxAttempts:   cfg.MaxAttempts,
			RetryBackoff:  cfg.RetryBackoff,
			RetryMaxDelay: cfg.RetryMaxDelay,
			SweepInterval: cfg.SweepInterval,
		})
	})
}

// Package api parses API command flags and launches the API runtime.
package api

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/swoplabs/swopcredit/internal/platform/cmd"
	apiserver "github.com/swoplabs/swopcredit/internal/services/api/app"
)

// Config holds API command configuration.
type Config struct {
	Addr        string        `env:"SWOPCREDIT_API_ADDR" envDefault:":8080"`
	DBPath      string        `env:"SWOPCREDIT_API_DB_PATH" envDefault:"data/swopcredit.db"`
	SessionSeed string        `env:"SWOPCREDIT_SESSION_SEED"`
	SessionTTL  time.Duration `env:"SWOPCREDIT_SESSION_TTL" envDefault:"720h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The API HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.SessionSeed, "session-seed", cfg.SessionSeed, "Base64 ed25519 session signing seed")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Session token lifetime")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the API runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAPI, func(context.Context) error {
		return apiserver.Run(ctx, apiserver.RuntimeConfig{
			Addr:        cfg.Addr,
			DBPath:      cfg.DBPath,
			SessionSeed: cfg.SessionSeed,
			SessionTTL:  cfg.SessionTTL,
		})
	})
}

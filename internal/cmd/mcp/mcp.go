// Package mcp parses MCP command flags and launches the stdio bridge.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/swoplabs/swopcredit/internal/platform/cmd"
	mcpapp "github.com/swoplabs/swopcredit/internal/services/mcp/app"
)

// Config holds MCP command configuration.
type Config struct {
	DBPath string `env:"SWOPCREDIT_MCP_DB_PATH" envDefault:"data/swopcredit.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP bridge.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(context.Context) error {
		return mcpapp.Run(ctx, mcpapp.RuntimeConfig{DBPath: cfg.DBPath})
	})
}

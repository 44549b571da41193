// Package config loads process configuration for SwopCredit commands.
// Every setting is an environment variable under the SWOPCREDIT_ prefix,
// declared through `env` struct tags with per-command flag overrides.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables. The returned error
// names the config type so multi-process logs identify the failing command.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env into %T: %w", target, err)
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every environment variable read by the tools.
const EnvPrefix = "RPG_SYSTEMS_"

// ParseEnv loads configuration from RPG_SYSTEMS_-prefixed environment
// variables. Struct tags omit the prefix.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

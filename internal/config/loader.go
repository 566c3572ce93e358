package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PACER_"

// Load builds a Config by layering defaults, optional files, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env in the working directory, if present (fills unset env vars only)
//  3. file (YAML) if PACER_CONFIG is set
//  4. env (prefix PACER_)
func Load(_ context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %w", ErrLoadConfig, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PACER_MAX_TOP_PERFORMERS_LIMIT -> max_top_performers_limit (flat keys).
	// List values are comma separated.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "cors_allowed_origins" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxTopPerformersLimit < 1:
		return fmt.Errorf("%w: max_top_performers_limit must be positive", ErrInvalidConfig)
	case c.DefaultTopPerformersLimit < 1 || c.DefaultTopPerformersLimit > c.MaxTopPerformersLimit:
		return fmt.Errorf("%w: default_top_performers_limit must be within 1..%d",
			ErrInvalidConfig, c.MaxTopPerformersLimit)
	case c.DBMaxOpenConns < 1:
		return fmt.Errorf("%w: db_max_open_conns must be positive", ErrInvalidConfig)
	case c.DBConnectTimeoutMS <= 0 || c.ShutdownTimeoutMS <= 0 || c.MetricsIntervalMS <= 0:
		return fmt.Errorf("%w: timeouts and intervals must be positive", ErrInvalidConfig)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers overrides on top of it.
// - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is a lib/pq connection string. Empty selects the in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// DBConnectTimeoutMS bounds the initial database ping.
	DBConnectTimeoutMS int `koanf:"db_connect_timeout_ms"`

	// DBMaxOpenConns caps the database pool.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// MaxTopPerformersLimit caps GET /reports/top-performers?limit.
	MaxTopPerformersLimit int `koanf:"max_top_performers_limit"`

	// DefaultTopPerformersLimit is used when the request omits limit.
	DefaultTopPerformersLimit int `koanf:"default_top_performers_limit"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
	MetricsIntervalMS int `koanf:"metrics_interval_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		DBConnectTimeoutMS:        5000,
		DBMaxOpenConns:            10,
		MaxTopPerformersLimit:     100,
		DefaultTopPerformersLimit: 10,
		CORSAllowedOrigins:        []string{"*"},
		ShutdownTimeoutMS:         10000,
		MetricsIntervalMS:         10000,
	}
}

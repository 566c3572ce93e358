package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithQueryTimeout bounds every statement issued outside a caller deadline.
func WithQueryTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// Package service composes the admission controller, performance analyzer,
// ranking engine and review rules over a repository.Store. It is the
// dependency the HTTP API is built on.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/pacer/internal/adapters/repository"
	"github.com/okian/pacer/internal/domain/admission"
	"github.com/okian/pacer/pkg/logger"
	"github.com/okian/pacer/pkg/metrics"
)

// Service implements the engine operations exposed over HTTP.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	admission *admission.Controller

	// Configuration
	maxTopPerformersLimit int
	now                   func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. Without it Start uses a MemoryStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for registration, past-event and review checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxTopPerformersLimit caps the limit accepted by TopPerformers.
func WithMaxTopPerformersLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxTopPerformersLimit = limit
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxTopPerformersLimit: 100,
		now:                   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting pacer service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithClock(s.now))
		s.logger.Info(ctx, "using in-memory store")
	}
	s.admission = admission.New(s.store, admission.WithClock(s.now))

	s.started = true
	s.logger.Info(ctx, "pacer service started",
		logger.Int("maxTopPerformersLimit", s.maxTopPerformersLimit),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping pacer service...")
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "failed to close store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "pacer service stopped")
}

// Store exposes the backing store, mostly for seeding and tests.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *Service) deps() (repository.Store, *admission.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.admission, nil
}

// GetStats returns service statistics for monitoring and refreshes the
// record-count gauges.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":               s.started,
		"maxTopPerformersLimit": s.maxTopPerformersLimit,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	st, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to read store stats", logger.Error(err))
		return stats
	}
	stats["joggers"] = st.Joggers
	stats["events"] = st.Events
	stats["routes"] = st.Routes
	stats["sessions"] = st.Sessions
	stats["registrations"] = st.Registrations
	stats["reviews"] = st.Reviews

	metrics.UpdateTrackedEvents(st.Events)
	metrics.UpdateTrackedSessions(st.Sessions)
	return stats
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

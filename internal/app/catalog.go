package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/pkg/logger"
)

// CreateJogger adds a jogger account.
func (s *Service) CreateJogger(ctx context.Context, j model.Jogger) (model.Jogger, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Jogger{}, err
	}
	j.Email = strings.TrimSpace(j.Email)
	j.Name = strings.TrimSpace(j.Name)
	if j.Email == "" {
		return model.Jogger{}, ErrMissingEmail
	}
	if j.Name == "" {
		return model.Jogger{}, ErrMissingName
	}
	if err := store.CreateJogger(ctx, j); err != nil {
		return model.Jogger{}, fmt.Errorf("create jogger: %w", err)
	}
	s.logger.Info(ctx, "jogger created", logger.String("jogger", j.Email))
	return j, nil
}

// CreateRoute adds a route. A zero AvgPace means the route has no baseline.
func (s *Service) CreateRoute(ctx context.Context, r model.Route) (model.Route, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Route{}, err
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return model.Route{}, ErrMissingName
	}
	if r.DistanceKm < 0 || r.AvgPace < 0 {
		return model.Route{}, ErrInvalidRouteData
	}
	if err := store.CreateRoute(ctx, &r); err != nil {
		return model.Route{}, fmt.Errorf("create route: %w", err)
	}
	s.logger.Info(ctx, "route created", logger.Int64("route_id", r.ID), logger.String("name", r.Name))
	return r, nil
}

// CreateEvent schedules an event, optionally on a known route.
func (s *Service) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Event{}, err
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return model.Event{}, ErrMissingName
	}
	if e.MaxParticipants < 1 {
		return model.Event{}, ErrInvalidCapacity
	}
	if e.RouteID != 0 {
		if _, err := store.GetRoute(ctx, e.RouteID); err != nil {
			return model.Event{}, err
		}
	}
	if err := store.CreateEvent(ctx, &e); err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info(ctx, "event created",
		logger.Int64("event_id", e.ID),
		logger.String("name", e.Name),
		logger.Int("max_participants", e.MaxParticipants),
	)
	return e, nil
}

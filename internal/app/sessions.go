package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/pacer/internal/adapters/repository"
	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/performance"
	"github.com/okian/pacer/pkg/logger"
	"github.com/okian/pacer/pkg/metrics"
)

// SessionReport is a session with its route and derived metrics.
type SessionReport struct {
	Session model.Session
	Route   *model.Route
	Report  performance.Report
}

// LogSession stores a new session and, when eventID is non-zero, links it to
// that event. If linking fails the session is removed again. End after start
// is not enforced here; bad times surface as anomalies in the report.
func (s *Service) LogSession(ctx context.Context, sess model.Session, eventID int64) (model.Session, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Session{}, err
	}
	if sess.DistanceKm < 0 {
		return model.Session{}, ErrNegativeDistance
	}
	if _, err := store.GetJogger(ctx, sess.JoggerEmail); err != nil {
		return model.Session{}, err
	}
	if sess.RouteID != 0 {
		if _, err := store.GetRoute(ctx, sess.RouteID); err != nil {
			return model.Session{}, err
		}
	}

	if err := store.CreateSession(ctx, &sess); err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	if eventID != 0 {
		if err := store.LinkSession(ctx, eventID, sess.ID); err != nil {
			if delErr := store.DeleteSession(ctx, sess.ID); delErr != nil {
				s.logger.Error(ctx, "failed to remove unlinked session",
					logger.Int64("session_id", sess.ID), logger.Error(delErr))
			}
			return model.Session{}, err
		}
	}

	metrics.RecordSessionLogged()
	s.logger.Debug(ctx, "session logged",
		logger.Int64("session_id", sess.ID),
		logger.String("jogger", sess.JoggerEmail),
		logger.Float64("distance_km", sess.DistanceKm),
		logger.Int64("event_id", eventID),
	)
	return sess, nil
}

// Sessions lists a jogger's sessions, most recent first.
func (s *Service) Sessions(ctx context.Context, email string) ([]model.Session, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	if _, err := store.GetJogger(ctx, email); err != nil {
		return nil, err
	}
	return store.SessionsByJogger(ctx, email)
}

// ownedSession loads a session and checks it belongs to email.
func ownedSession(ctx context.Context, store repository.Store, id int64, email string) (model.Session, error) {
	sess, err := store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if sess.JoggerEmail != email {
		return model.Session{}, ErrForbidden
	}
	return sess, nil
}

// UpdateSession replaces times, distance and route of an owned session.
// Unlike LogSession, end must be after start.
func (s *Service) UpdateSession(ctx context.Context, sess model.Session) (model.Session, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Session{}, err
	}
	if !sess.End.After(sess.Start) {
		return model.Session{}, ErrInvalidSessionTimes
	}
	if sess.DistanceKm < 0 {
		return model.Session{}, ErrNegativeDistance
	}
	if _, err := ownedSession(ctx, store, sess.ID, sess.JoggerEmail); err != nil {
		return model.Session{}, err
	}
	if sess.RouteID != 0 {
		if _, err := store.GetRoute(ctx, sess.RouteID); err != nil {
			return model.Session{}, err
		}
	}
	if err := store.UpdateSession(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// DeleteSession removes an owned session and its event links.
func (s *Service) DeleteSession(ctx context.Context, id int64, email string) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if _, err := ownedSession(ctx, store, id, email); err != nil {
		return err
	}
	return store.DeleteSession(ctx, id)
}

// LinkSession tags an owned session to an event.
func (s *Service) LinkSession(ctx context.Context, eventID, sessionID int64, email string) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if _, err := ownedSession(ctx, store, sessionID, email); err != nil {
		return err
	}
	return store.LinkSession(ctx, eventID, sessionID)
}

// UnlinkSession removes an owned session from an event.
func (s *Service) UnlinkSession(ctx context.Context, eventID, sessionID int64, email string) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if _, err := ownedSession(ctx, store, sessionID, email); err != nil {
		return err
	}
	return store.UnlinkSession(ctx, eventID, sessionID)
}

// SessionReport analyzes an owned session. Anomalies are returned on the
// report, not as an error.
func (s *Service) SessionReport(ctx context.Context, id int64, email string) (SessionReport, error) {
	store, _, err := s.deps()
	if err != nil {
		return SessionReport{}, err
	}
	sess, err := ownedSession(ctx, store, id, email)
	if err != nil {
		return SessionReport{}, err
	}

	var route *model.Route
	if sess.RouteID != 0 {
		r, err := store.GetRoute(ctx, sess.RouteID)
		switch {
		case err == nil:
			route = &r
		case !errors.Is(err, repository.ErrRouteNotFound):
			return SessionReport{}, err
		}
	}

	report := performance.Analyze(sess, route)
	metrics.RecordAnalysis(report.Rating.String())
	for _, a := range report.Anomalies {
		metrics.RecordAnomaly(string(a))
	}
	if err := report.Err(); err != nil {
		s.logger.Warn(ctx, "session has data integrity anomalies",
			logger.Int64("session_id", id), logger.Error(err))
	}
	return SessionReport{Session: sess, Route: route, Report: report}, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/pacer/internal/adapters/repository"
	"github.com/okian/pacer/internal/domain/admission"
	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/pkg/logger"
	"github.com/okian/pacer/pkg/metrics"
)

const (
	pathJogger    = "jogger"
	pathOrganizer = "organizer"
)

// admissionOutcome names err for metrics labels.
func admissionOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, admission.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, admission.ErrEventFull):
		return "event_full"
	case errors.Is(err, admission.ErrEventInPast):
		return "event_in_past"
	case errors.Is(err, admission.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, repository.ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, repository.ErrJoggerNotFound):
		return "jogger_not_found"
	default:
		return "error"
	}
}

// TryRegister seats a jogger in an upcoming event.
func (s *Service) TryRegister(ctx context.Context, eventID int64, email string) error {
	return s.register(ctx, eventID, email, pathJogger)
}

// Enroll seats a jogger on behalf of an organizer; past events are allowed.
func (s *Service) Enroll(ctx context.Context, eventID int64, email string) error {
	return s.register(ctx, eventID, email, pathOrganizer)
}

func (s *Service) register(ctx context.Context, eventID int64, email, path string) error {
	_, ctrl, err := s.deps()
	if err != nil {
		return err
	}

	start := time.Now()
	if path == pathOrganizer {
		err = ctrl.Enroll(ctx, eventID, email)
	} else {
		err = ctrl.TryRegister(ctx, eventID, email)
	}
	metrics.RecordAdmissionLockWait(sinceMs(start))

	outcome := admissionOutcome(err)
	metrics.RecordRegistration(path, outcome)
	fields := []logger.Field{
		logger.Int64("event_id", eventID),
		logger.String("jogger", email),
		logger.String("path", path),
		logger.String("outcome", outcome),
	}
	if outcome == "error" {
		metrics.RecordErrorByComponent("admission", outcome)
		s.logger.Error(ctx, "registration failed", append(fields, logger.Error(err))...)
		return err
	}
	s.logger.Debug(ctx, "registration processed", fields...)
	return err
}

// Unregister frees a jogger's seat.
func (s *Service) Unregister(ctx context.Context, eventID int64, email string) error {
	_, ctrl, err := s.deps()
	if err != nil {
		return err
	}
	err = ctrl.Unregister(ctx, eventID, email)
	outcome := admissionOutcome(err)
	metrics.RecordUnregistration(outcome)
	if outcome == "error" {
		metrics.RecordErrorByComponent("admission", outcome)
		s.logger.Error(ctx, "unregistration failed",
			logger.Int64("event_id", eventID), logger.String("jogger", email), logger.Error(err))
	}
	return err
}

// Availability reports an event's seats for email, which may be empty.
func (s *Service) Availability(ctx context.Context, eventID int64, email string) (admission.Availability, error) {
	_, ctrl, err := s.deps()
	if err != nil {
		return admission.Availability{}, err
	}
	return ctrl.Status(ctx, eventID, email)
}

// Registrations lists the joggers holding a seat in an event.
func (s *Service) Registrations(ctx context.Context, eventID int64) ([]model.Registration, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return store.Registrations(ctx, eventID)
}

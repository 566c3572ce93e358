// Package admission enforces event capacity on registration.
//
// Every check-and-insert runs inside the store's per-event exclusive scope,
// so at most MaxParticipants registrations succeed for an event no matter how
// many callers race for the last seat.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pacer/internal/adapters/repository"
	"github.com/okian/pacer/internal/domain/model"
)

// Store is the subset of repository.Store the controller needs.
type Store interface {
	GetJogger(ctx context.Context, email string) (model.Jogger, error)
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	LockEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx repository.RegistrationTx) error) error
	IsRegistered(ctx context.Context, eventID int64, email string) (bool, error)
	CountRegistrations(ctx context.Context, eventID int64) (int, error)
}

// Controller admits and releases event registrations.
type Controller struct {
	store Store
	now   func() time.Time
}

// New creates a Controller on top of store.
func New(store Store, opts ...Option) *Controller {
	c := &Controller{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TryRegister seats email in the event. It returns ErrAlreadyRegistered,
// ErrEventFull or ErrEventInPast (checked in that order) when the seat is
// refused, and a repository not-found error for unknown ids.
func (c *Controller) TryRegister(ctx context.Context, eventID int64, email string) error {
	return c.admit(ctx, eventID, email, true)
}

// Enroll is the organizer path: the same as TryRegister without the
// past-event check.
func (c *Controller) Enroll(ctx context.Context, eventID int64, email string) error {
	return c.admit(ctx, eventID, email, false)
}

func (c *Controller) admit(ctx context.Context, eventID int64, email string, rejectPast bool) error {
	if _, err := c.store.GetJogger(ctx, email); err != nil {
		return err
	}
	return c.store.LockEvent(ctx, eventID, func(ctx context.Context, tx repository.RegistrationTx) error {
		registered, err := tx.IsRegistered(ctx, email)
		if err != nil {
			return err
		}
		if registered {
			return ErrAlreadyRegistered
		}

		count, err := tx.Count(ctx)
		if err != nil {
			return err
		}
		event := tx.Event()
		if count >= event.MaxParticipants {
			return ErrEventFull
		}

		now := c.now()
		if rejectPast && event.InPast(now) {
			return ErrEventInPast
		}

		if err := tx.Insert(ctx, email, now); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
}

// Unregister frees the jogger's seat. Without a seat it returns
// ErrNotRegistered, however often it is called.
func (c *Controller) Unregister(ctx context.Context, eventID int64, email string) error {
	return c.store.LockEvent(ctx, eventID, func(ctx context.Context, tx repository.RegistrationTx) error {
		if err := tx.Delete(ctx, email); err != nil {
			if errors.Is(err, repository.ErrRegistrationNotFound) {
				return ErrNotRegistered
			}
			return err
		}
		return nil
	})
}

// Availability is a read-only snapshot of an event's seats from one
// jogger's point of view.
type Availability struct {
	EventID    int64
	Capacity   int
	Count      int
	Registered bool
	Full       bool
	Past       bool
}

// CanRegister reports whether TryRegister would currently succeed.
func (a Availability) CanRegister() bool { return !a.Registered && !a.Full && !a.Past }

// Status reports the event's availability. email may be empty.
func (c *Controller) Status(ctx context.Context, eventID int64, email string) (Availability, error) {
	event, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		return Availability{}, err
	}
	count, err := c.store.CountRegistrations(ctx, eventID)
	if err != nil {
		return Availability{}, err
	}
	a := Availability{
		EventID:  eventID,
		Capacity: event.MaxParticipants,
		Count:    count,
		Full:     count >= event.MaxParticipants,
		Past:     event.InPast(c.now()),
	}
	if email != "" {
		if a.Registered, err = c.store.IsRegistered(ctx, eventID, email); err != nil {
			return Availability{}, err
		}
	}
	return a, nil
}

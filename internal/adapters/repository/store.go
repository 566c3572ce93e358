// Package repository defines the storage contract of the engine and its
// in-memory and PostgreSQL implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/pacer/internal/domain/model"
)

// Store provides read/write access to joggers, events, routes, sessions,
// event-session links, registrations and reviews.
//
// Lookups of unknown ids return an error wrapping ErrNotFound.
type Store interface {
	CreateJogger(ctx context.Context, j model.Jogger) error
	GetJogger(ctx context.Context, email string) (model.Jogger, error)
	CreateRoute(ctx context.Context, r *model.Route) error
	GetRoute(ctx context.Context, id int64) (model.Route, error)
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id int64) (model.Event, error)

	// LockEvent runs fn inside an exclusive scope for one event. Concurrent
	// calls for the same event are serialized; the scope ends when fn returns.
	// An error from fn aborts any writes made through tx.
	LockEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx RegistrationTx) error) error
	IsRegistered(ctx context.Context, eventID int64, email string) (bool, error)
	CountRegistrations(ctx context.Context, eventID int64) (int, error)
	// Registrations lists an event's seats, oldest first.
	Registrations(ctx context.Context, eventID int64) ([]model.Registration, error)

	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id int64) (model.Session, error)
	UpdateSession(ctx context.Context, s model.Session) error
	// DeleteSession removes the session and its event links.
	DeleteSession(ctx context.Context, id int64) error
	SessionsByJogger(ctx context.Context, email string) ([]model.Session, error)

	// LinkSession is idempotent.
	LinkSession(ctx context.Context, eventID, sessionID int64) error
	UnlinkSession(ctx context.Context, eventID, sessionID int64) error
	// LeaderboardRows returns every session linked to the event joined with its jogger.
	LeaderboardRows(ctx context.Context, eventID int64) ([]model.LeaderboardRow, error)
	// PerformerRows returns every session linked to any of eventIDs.
	PerformerRows(ctx context.Context, eventIDs []int64) ([]model.PerformerRow, error)

	// UpsertReview keeps one review per (target, target id, jogger); a
	// resubmission replaces rating and comment and keeps the id.
	UpsertReview(ctx context.Context, r *model.Review) error
	GetReview(ctx context.Context, target model.ReviewTarget, id int64) (model.Review, error)
	DeleteReview(ctx context.Context, target model.ReviewTarget, id int64) error
	Reviews(ctx context.Context, target model.ReviewTarget, targetID int64) ([]model.Review, error)

	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// RegistrationTx is the view of one locked event handed to LockEvent callbacks.
type RegistrationTx interface {
	Event() model.Event
	IsRegistered(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
	// Insert returns ErrDuplicate if the jogger already holds a seat.
	Insert(ctx context.Context, email string, at time.Time) error
	// Delete returns ErrRegistrationNotFound if there is no seat to free.
	Delete(ctx context.Context, email string) error
}

// Stats counts stored records.
type Stats struct {
	Joggers       int
	Events        int
	Routes        int
	Sessions      int
	Registrations int
	Reviews       int
}

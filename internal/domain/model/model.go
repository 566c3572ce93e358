// Package model contains domain models passed between layers.
package model

import "time"

// Event is a scheduled group run with a participant cap.
type Event struct {
	ID              int64
	Name            string
	Date            time.Time
	MaxParticipants int   // capacity, >= 1
	RouteID         int64 // 0 when the event has no route
}

// InPast reports whether the event date is strictly before now.
func (e Event) InPast(now time.Time) bool { return e.Date.Before(now) }

// Jogger is identified by e-mail.
type Jogger struct {
	Email string
	Name  string
}

// Route is a named course with an optional average pace baseline.
type Route struct {
	ID         int64
	Name       string
	DistanceKm float64
	AvgPace    float64 // minutes per km; 0 means no baseline
}

// Registration records a jogger's seat in an event.
type Registration struct {
	EventID     int64
	JoggerEmail string
	CreatedAt   time.Time
}

// Session is one recorded run.
type Session struct {
	ID          int64
	JoggerEmail string
	Start       time.Time
	End         time.Time
	DistanceKm  float64
	RouteID     int64 // 0 when not run on a known route
}

// Duration returns End-Start. It may be zero or negative for bad records.
func (s Session) Duration() time.Duration { return s.End.Sub(s.Start) }

// ReviewTarget names what a review is about.
type ReviewTarget string

const (
	ReviewTargetEvent ReviewTarget = "event"
	ReviewTargetRoute ReviewTarget = "route"
)

// Review is a jogger's 1..5 rating of an event or route.
type Review struct {
	ID          int64
	Target      ReviewTarget
	TargetID    int64
	JoggerEmail string
	Rating      int
	Comment     string
	CreatedAt   time.Time
}

// ReviewSummary aggregates the reviews of one target.
type ReviewSummary struct {
	Average float64 // rounded to one decimal, 0 when Count is 0
	Count   int
}

// LeaderboardRow is a session linked to an event, joined with its jogger.
type LeaderboardRow struct {
	EventID     int64
	SessionID   int64
	JoggerEmail string
	JoggerName  string
	DistanceKm  float64
	Start       time.Time
	End         time.Time
}

// LeaderboardEntry is a ranked row. Derived, never persisted.
type LeaderboardEntry struct {
	EventID     int64
	SessionID   int64
	JoggerEmail string
	JoggerName  string
	DistanceKm  float64
	FinishTime  int64 // whole seconds
	Rank        int
}

// PerformerRow is one linked session's contribution to cross-event totals.
type PerformerRow struct {
	EventID     int64
	SessionID   int64
	JoggerEmail string
	JoggerName  string
	DistanceKm  float64
}

// TopPerformer is a jogger's aggregate across a set of events.
type TopPerformer struct {
	JoggerEmail     string
	JoggerName      string
	TotalDistanceKm float64
	EventCount      int // distinct events
}

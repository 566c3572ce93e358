// Package types contains the JSON shapes exchanged over the HTTP API.
package types

import (
	"time"

	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/performance"
)

// LeaderboardEntry is one ranked row of an event leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	EventID     int64   `json:"event_id"`
	SessionID   int64   `json:"session_id"`
	JoggerEmail string  `json:"jogger_email"`
	JoggerName  string  `json:"jogger_name"`
	DistanceKm  float64 `json:"distance_km"`
	FinishTime  int64   `json:"finish_time_seconds"`
}

// Leaderboard wraps the entries of one event.
type Leaderboard struct {
	EventID int64              `json:"event_id"`
	Entries []LeaderboardEntry `json:"entries"`
}

// TopPerformer is one row of the cross-event report.
type TopPerformer struct {
	JoggerEmail     string  `json:"jogger_email"`
	JoggerName      string  `json:"jogger_name"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	EventCount      int     `json:"event_count"`
}

// Jogger is a registered runner.
type Jogger struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Route is a named course. AvgPace is minutes per km, 0 when unknown.
type Route struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
	AvgPace    float64 `json:"avg_pace"`
}

// Event is a scheduled group run.
type Event struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Date            time.Time `json:"date"`
	MaxParticipants int       `json:"max_participants"`
	RouteID         int64     `json:"route_id,omitempty"`
}

// Registration is one seat in an event.
type Registration struct {
	EventID     int64     `json:"event_id"`
	JoggerEmail string    `json:"jogger_email"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is a recorded run.
type Session struct {
	ID          int64     `json:"id"`
	JoggerEmail string    `json:"jogger_email"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DistanceKm  float64   `json:"distance_km"`
	RouteID     int64     `json:"route_id,omitempty"`
}

// SessionReport carries the derived metrics of one session.
type SessionReport struct {
	Session         Session  `json:"session"`
	RouteName       string   `json:"route_name,omitempty"`
	DurationSeconds int64    `json:"duration_seconds"`
	Duration        string   `json:"duration"`
	PaceSecPerM     float64  `json:"pace_sec_per_m"`
	SpeedKmh        float64  `json:"speed_kmh"`
	Calories        int      `json:"calories"`
	BaselineSecPerM float64  `json:"baseline_sec_per_m,omitempty"`
	PaceDiff        float64  `json:"pace_diff"`
	PaceDiffAbs     float64  `json:"pace_diff_abs"`
	Rating          int      `json:"rating"`
	RatingLabel     string   `json:"rating_label"`
	Anomalies       []string `json:"anomalies,omitempty"`
}

// Availability describes an event's seats for one jogger.
type Availability struct {
	EventID     int64 `json:"event_id"`
	Capacity    int   `json:"capacity"`
	Registered  int   `json:"registered"`
	IsMember    bool  `json:"is_registered"`
	Full        bool  `json:"full"`
	Past        bool  `json:"past"`
	CanRegister bool  `json:"can_register"`
}

// Review is an event or route review.
type Review struct {
	ID          int64     `json:"id"`
	Target      string    `json:"target"`
	TargetID    int64     `json:"target_id"`
	JoggerEmail string    `json:"jogger_email"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reviews lists the reviews of one target with their summary.
type Reviews struct {
	Average float64  `json:"average"`
	Count   int      `json:"count"`
	Reviews []Review `json:"reviews"`
}

// FromLeaderboard converts ranked entries, keeping a non-nil slice.
func FromLeaderboard(eventID int64, entries []model.LeaderboardEntry) Leaderboard {
	out := Leaderboard{EventID: eventID, Entries: make([]LeaderboardEntry, len(entries))}
	for i, e := range entries {
		out.Entries[i] = FromLeaderboardEntry(e)
	}
	return out
}

func FromLeaderboardEntry(e model.LeaderboardEntry) LeaderboardEntry {
	return LeaderboardEntry{
		Rank:        e.Rank,
		EventID:     e.EventID,
		SessionID:   e.SessionID,
		JoggerEmail: e.JoggerEmail,
		JoggerName:  e.JoggerName,
		DistanceKm:  e.DistanceKm,
		FinishTime:  e.FinishTime,
	}
}

func FromTopPerformers(ps []model.TopPerformer) []TopPerformer {
	out := make([]TopPerformer, len(ps))
	for i, p := range ps {
		out[i] = TopPerformer{
			JoggerEmail:     p.JoggerEmail,
			JoggerName:      p.JoggerName,
			TotalDistanceKm: p.TotalDistanceKm,
			EventCount:      p.EventCount,
		}
	}
	return out
}

func FromJogger(j model.Jogger) Jogger {
	return Jogger{Email: j.Email, Name: j.Name}
}

func FromRoute(r model.Route) Route {
	return Route{ID: r.ID, Name: r.Name, DistanceKm: r.DistanceKm, AvgPace: r.AvgPace}
}

func FromEvent(e model.Event) Event {
	return Event{
		ID:              e.ID,
		Name:            e.Name,
		Date:            e.Date,
		MaxParticipants: e.MaxParticipants,
		RouteID:         e.RouteID,
	}
}

// FromRegistrations converts seats, keeping a non-nil slice.
func FromRegistrations(rs []model.Registration) []Registration {
	out := make([]Registration, len(rs))
	for i, r := range rs {
		out[i] = Registration{EventID: r.EventID, JoggerEmail: r.JoggerEmail, CreatedAt: r.CreatedAt}
	}
	return out
}

// FromSessions converts sessions, keeping a non-nil slice.
func FromSessions(ss []model.Session) []Session {
	out := make([]Session, len(ss))
	for i, s := range ss {
		out[i] = FromSession(s)
	}
	return out
}

func FromSession(s model.Session) Session {
	return Session{
		ID:          s.ID,
		JoggerEmail: s.JoggerEmail,
		Start:       s.Start,
		End:         s.End,
		DistanceKm:  s.DistanceKm,
		RouteID:     s.RouteID,
	}
}

func FromReviews(rs []model.Review, summary model.ReviewSummary) Reviews {
	out := Reviews{Average: summary.Average, Count: summary.Count, Reviews: make([]Review, len(rs))}
	for i, r := range rs {
		out.Reviews[i] = FromReview(r)
	}
	return out
}

func FromReview(r model.Review) Review {
	return Review{
		ID:          r.ID,
		Target:      string(r.Target),
		TargetID:    r.TargetID,
		JoggerEmail: r.JoggerEmail,
		Rating:      r.Rating,
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt,
	}
}

// FromSessionReport flattens a session and its analysis. route may be nil.
func FromSessionReport(s model.Session, route *model.Route, r performance.Report) SessionReport {
	out := SessionReport{
		Session:         FromSession(s),
		DurationSeconds: r.DurationSeconds,
		Duration:        r.Duration,
		PaceSecPerM:     r.PaceSecPerM,
		SpeedKmh:        r.SpeedKmh,
		Calories:        r.Calories,
		BaselineSecPerM: r.BaselineSecPerM,
		PaceDiff:        r.PaceDiff,
		PaceDiffAbs:     r.PaceDiffAbs,
		Rating:          int(r.Rating),
		RatingLabel:     r.Rating.String(),
	}
	if route != nil {
		out.RouteName = route.Name
	}
	for _, a := range r.Anomalies {
		out.Anomalies = append(out.Anomalies, string(a))
	}
	return out
}

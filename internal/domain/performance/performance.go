// Package performance derives per-session metrics and a performance rating
// from a recorded run and the route it was run on.
//
// Analyze is a pure function and is safe for concurrent use.
package performance

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/pacer/internal/domain/model"
)

const (
	// CaloriesPerKm is the fixed linear energy estimate.
	CaloriesPerKm = 70

	// SlowPaceSecPerM is the absolute slow threshold: 13:20 min/km.
	// Do not lower it to 0.008: that rates every real run slow.
	SlowPaceSecPerM = 0.8

	// BaselineTolerance is how much slower than the route baseline a run may be
	// before it is rated slow.
	BaselineTolerance = 1.15
)

// Rating is the two-valued performance rating. RatingUnknown is only produced
// for sessions with anomalies.
type Rating int

const (
	RatingUnknown Rating = 0
	RatingSlow    Rating = 1
	RatingOnPace  Rating = 2
)

func (r Rating) String() string {
	switch r {
	case RatingSlow:
		return "slow"
	case RatingOnPace:
		return "on_pace"
	default:
		return "unknown"
	}
}

// Anomaly names a data-integrity condition found in a session.
type Anomaly string

const (
	AnomalyNegativeDuration Anomaly = "negative_duration"
	AnomalyZeroDuration     Anomaly = "zero_duration"
	AnomalyNegativeDistance Anomaly = "negative_distance"
)

// Report holds the derived metrics of one session.
type Report struct {
	SessionID       int64
	DurationSeconds int64
	Duration        string // human readable, e.g. "1h 5m 3s"
	DistanceKm      float64
	PaceSecPerM     float64
	SpeedKmh        float64
	Calories        int
	BaselineSecPerM float64 // 0 when the route has no baseline
	PaceDiff        float64 // pace - baseline, only set when baseline > 0
	PaceDiffAbs     float64
	Rating          Rating
	Anomalies       []Anomaly
}

// HasBaseline reports whether pace was compared with a route baseline.
func (r Report) HasBaseline() bool { return r.BaselineSecPerM > 0 }

// Err returns nil for a clean report, otherwise an error wrapping
// ErrDataIntegrity that lists the anomalies.
func (r Report) Err() error {
	if len(r.Anomalies) == 0 {
		return nil
	}
	names := make([]string, len(r.Anomalies))
	for i, a := range r.Anomalies {
		names[i] = string(a)
	}
	return fmt.Errorf("%w: %s", ErrDataIntegrity, strings.Join(names, ", "))
}

// Analyze computes the report for s. route may be nil.
//
// A session with anomalies gets zeroed derived fields and RatingUnknown;
// zero distance over a positive duration is a normal, not-yet-run session.
func Analyze(s model.Session, route *model.Route) Report {
	secs := int64(s.Duration() / time.Second)
	r := Report{
		SessionID:       s.ID,
		DurationSeconds: secs,
		DistanceKm:      s.DistanceKm,
		Anomalies:       detect(secs, s.DistanceKm),
	}
	if route != nil && route.AvgPace > 0 {
		r.BaselineSecPerM = route.AvgPace * 60 / 1000
	}

	if len(r.Anomalies) > 0 {
		r.DurationSeconds = max(secs, 0)
		r.Duration = FormatDuration(r.DurationSeconds)
		r.DistanceKm = math.Max(s.DistanceKm, 0)
		r.Calories = calories(r.DistanceKm)
		r.Rating = RatingUnknown
		return r
	}

	r.Duration = FormatDuration(secs)
	r.PaceSecPerM = Pace(secs, s.DistanceKm)
	r.SpeedKmh = Speed(secs, s.DistanceKm)
	r.Calories = calories(s.DistanceKm)
	if r.HasBaseline() {
		r.PaceDiff = r.PaceSecPerM - r.BaselineSecPerM
		r.PaceDiffAbs = math.Abs(r.PaceDiff)
	}
	r.Rating = Rate(r.PaceSecPerM, r.BaselineSecPerM)
	return r
}

func detect(secs int64, km float64) []Anomaly {
	var out []Anomaly
	switch {
	case secs < 0:
		out = append(out, AnomalyNegativeDuration)
	case secs == 0:
		out = append(out, AnomalyZeroDuration)
	}
	if km < 0 {
		out = append(out, AnomalyNegativeDistance)
	}
	return out
}

// Pace returns seconds per meter, or 0 when km <= 0.
func Pace(secs int64, km float64) float64 {
	if km <= 0 {
		return 0
	}
	return float64(secs) / (km * 1000)
}

// Speed returns km/h, or 0 when secs <= 0.
func Speed(secs int64, km float64) float64 {
	if secs <= 0 {
		return 0
	}
	return km / (float64(secs) / 3600)
}

// Rate applies the baseline rule and then the absolute rule. The absolute
// rule can only lower the rating.
func Rate(pace, baseline float64) Rating {
	rating := RatingOnPace
	if baseline > 0 && pace > baseline*BaselineTolerance {
		rating = RatingSlow
	}
	if pace > SlowPaceSecPerM {
		rating = RatingSlow
	}
	return rating
}

func calories(km float64) int {
	return int(math.Floor(km * CaloriesPerKm))
}

// FormatDuration renders whole seconds as "1h 2m 3s", or "2m 3s" under an hour.
// Negative input renders as zero.
func FormatDuration(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

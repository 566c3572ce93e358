// Package review holds the rules for event and route reviews.
package review

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/pacer/internal/domain/model"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ValidateRating rejects ratings outside [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: got %d", ErrRatingOutOfRange, rating)
	}
	return nil
}

// CheckEventEligibility allows a review only from a registered jogger once the
// event date has passed.
func CheckEventEligibility(event model.Event, registered bool, now time.Time) error {
	if !registered || !event.InPast(now) {
		return ErrNotParticipant
	}
	return nil
}

// Summarize averages ratings, rounded to one decimal. An empty input yields
// a zero summary.
func Summarize(reviews []model.Review) model.ReviewSummary {
	if len(reviews) == 0 {
		return model.ReviewSummary{}
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return model.ReviewSummary{
		Average: math.Round(avg*10) / 10,
		Count:   len(reviews),
	}
}

package service

import (
	"errors"
	"fmt"

	"github.com/okian/pacer/internal/adapters/repository"
	"github.com/okian/pacer/internal/domain/ranking"
)

var (
	ErrNotStarted = errors.New("service not started")

	// ErrForbidden is returned when a jogger acts on another jogger's record.
	ErrForbidden = errors.New("record belongs to another jogger")

	ErrInvalidSessionTimes = errors.New("session end must be after start")
	ErrNegativeDistance    = errors.New("distance must not be negative")
	ErrNoEvents            = errors.New("at least one event id is required")

	ErrMissingEmail     = errors.New("email is required")
	ErrMissingName      = errors.New("name is required")
	ErrInvalidCapacity  = errors.New("max participants must be at least 1")
	ErrInvalidRouteData = errors.New("route distance and average pace must not be negative")

	ErrLimitExceeded = fmt.Errorf("%w: above the configured maximum", ranking.ErrInvalidLimit)
	ErrNotRanked     = fmt.Errorf("jogger has no ranked session in this event: %w", repository.ErrNotFound)
)

package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every not-found error of this package.
var ErrNotFound = errors.New("not found")

var (
	ErrEventNotFound        = fmt.Errorf("event %w", ErrNotFound)
	ErrJoggerNotFound       = fmt.Errorf("jogger %w", ErrNotFound)
	ErrRouteNotFound        = fmt.Errorf("route %w", ErrNotFound)
	ErrSessionNotFound      = fmt.Errorf("session %w", ErrNotFound)
	ErrReviewNotFound       = fmt.Errorf("review %w", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("registration %w", ErrNotFound)
	ErrLinkNotFound         = fmt.Errorf("event session link %w", ErrNotFound)

	// ErrDuplicate reports a unique key violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidReference reports a row that points at a missing parent.
	ErrInvalidReference = errors.New("invalid reference")
)

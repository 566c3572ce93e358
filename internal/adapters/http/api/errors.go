package api

import (
	"errors"
	"net/http"

	"github.com/okian/pacer/internal/adapters/repository"
	service "github.com/okian/pacer/internal/app"
	"github.com/okian/pacer/internal/domain/admission"
	"github.com/okian/pacer/internal/domain/ranking"
	"github.com/okian/pacer/internal/domain/review"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidParam = errors.New("invalid path or query parameter")
)

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, admission.ErrAlreadyRegistered):
		return http.StatusConflict, "already_registered"
	case errors.Is(err, admission.ErrEventFull):
		return http.StatusConflict, "event_full"
	case errors.Is(err, admission.ErrEventInPast):
		return http.StatusUnprocessableEntity, "event_in_past"
	case errors.Is(err, admission.ErrNotRegistered):
		return http.StatusNotFound, "not_registered"
	case errors.Is(err, service.ErrNotRanked):
		return http.StatusNotFound, "not_ranked"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, review.ErrNotParticipant):
		return http.StatusForbidden, "not_participant"

	case errors.Is(err, service.ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ranking.ErrInvalidLimit),
		errors.Is(err, service.ErrNoEvents),
		errors.Is(err, service.ErrNegativeDistance),
		errors.Is(err, service.ErrInvalidSessionTimes),
		errors.Is(err, service.ErrMissingEmail),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidRouteData),
		errors.Is(err, review.ErrRatingOutOfRange),
		errors.Is(err, repository.ErrInvalidReference),
		errors.Is(err, ErrInvalidParam),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, "conflict"

	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError translates err with statusFor. Internal errors are not
// echoed to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

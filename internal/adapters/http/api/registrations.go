package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/pacer/internal/domain/admission"
	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/types"
)

// RegistrationDependencies defines the admission operations.
type RegistrationDependencies interface {
	TryRegister(ctx context.Context, eventID int64, email string) error
	Enroll(ctx context.Context, eventID int64, email string) error
	Unregister(ctx context.Context, eventID int64, email string) error
	Availability(ctx context.Context, eventID int64, email string) (admission.Availability, error)
	Registrations(ctx context.Context, eventID int64) ([]model.Registration, error)
}

// RegistrationHandler handles event registration requests.
type RegistrationHandler struct {
	deps RegistrationDependencies
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(deps RegistrationDependencies) *RegistrationHandler {
	return &RegistrationHandler{deps: deps}
}

type registrationRequest struct {
	JoggerEmail string `json:"jogger_email" validate:"required,email"`
}

type registrationResponse struct {
	EventID     int64  `json:"event_id"`
	JoggerEmail string `json:"jogger_email"`
	Status      string `json:"status"`
}

// HandleRegister handles POST /events/{eventID}/registrations.
func (h *RegistrationHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.deps.TryRegister)
}

// HandleEnroll handles POST /organizer/events/{eventID}/registrations.
func (h *RegistrationHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.deps.Enroll)
}

func (h *RegistrationHandler) register(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, string) error) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req registrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := fn(r.Context(), eventID, req.JoggerEmail); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registrationResponse{EventID: eventID, JoggerEmail: req.JoggerEmail, Status: "registered"})
}

// HandleUnregister handles DELETE /events/{eventID}/registrations/{email}.
func (h *RegistrationHandler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	email := chi.URLParam(r, "email")
	if err := getValidator().Var(email, "required,email"); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrInvalidParam)
		return
	}
	if err := h.deps.Unregister(r.Context(), eventID, email); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAvailability handles GET /events/{eventID}/availability?jogger_email=.
// The email is optional.
func (h *RegistrationHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var email string
	if r.URL.Query().Get("jogger_email") != "" {
		if email, err = emailQuery(r); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	a, err := h.deps.Availability(r.Context(), eventID, email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Availability{
		EventID:     a.EventID,
		Capacity:    a.Capacity,
		Registered:  a.Count,
		IsMember:    a.Registered,
		Full:        a.Full,
		Past:        a.Past,
		CanRegister: a.CanRegister(),
	})
}

// HandleListRegistrations handles GET /organizer/events/{eventID}/registrations.
func (h *RegistrationHandler) HandleListRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	regs, err := h.deps.Registrations(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromRegistrations(regs))
}

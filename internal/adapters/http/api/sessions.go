package api

import (
	"context"
	"net/http"
	"time"

	service "github.com/okian/pacer/internal/app"
	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/types"
)

// SessionDependencies defines the session lifecycle operations.
type SessionDependencies interface {
	Sessions(ctx context.Context, email string) ([]model.Session, error)
	LogSession(ctx context.Context, sess model.Session, eventID int64) (model.Session, error)
	UpdateSession(ctx context.Context, sess model.Session) (model.Session, error)
	DeleteSession(ctx context.Context, id int64, email string) error
	LinkSession(ctx context.Context, eventID, sessionID int64, email string) error
	UnlinkSession(ctx context.Context, eventID, sessionID int64, email string) error
	SessionReport(ctx context.Context, id int64, email string) (service.SessionReport, error)
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// logSessionRequest does not require end after start; such sessions are
// kept and reported as anomalies.
type logSessionRequest struct {
	JoggerEmail string    `json:"jogger_email" validate:"required,email"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
	DistanceKm  float64   `json:"distance_km" validate:"gte=0"`
	RouteID     int64     `json:"route_id" validate:"omitempty,gte=1"`
	EventID     int64     `json:"event_id" validate:"omitempty,gte=1"`
}

type updateSessionRequest struct {
	JoggerEmail string    `json:"jogger_email" validate:"required,email"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required,gtfield=Start"`
	DistanceKm  float64   `json:"distance_km" validate:"gte=0"`
	RouteID     int64     `json:"route_id" validate:"omitempty,gte=1"`
}

type linkRequest struct {
	JoggerEmail string `json:"jogger_email" validate:"required,email"`
}

// HandleList handles GET /sessions?jogger_email=.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, err := emailQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sessions, err := h.deps.Sessions(r.Context(), email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromSessions(sessions))
}

// HandleLog handles POST /sessions.
func (h *SessionHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	var req logSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	sess, err := h.deps.LogSession(r.Context(), model.Session{
		JoggerEmail: req.JoggerEmail,
		Start:       req.Start,
		End:         req.End,
		DistanceKm:  req.DistanceKm,
		RouteID:     req.RouteID,
	}, req.EventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromSession(sess))
}

// HandleUpdate handles PUT /sessions/{sessionID}.
func (h *SessionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req updateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	sess, err := h.deps.UpdateSession(r.Context(), model.Session{
		ID:          id,
		JoggerEmail: req.JoggerEmail,
		Start:       req.Start,
		End:         req.End,
		DistanceKm:  req.DistanceKm,
		RouteID:     req.RouteID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromSession(sess))
}

// HandleDelete handles DELETE /sessions/{sessionID}?jogger_email=.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	email, err := emailQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.deps.DeleteSession(r.Context(), id, email); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReport handles GET /sessions/{sessionID}/report?jogger_email=.
func (h *SessionHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	email, err := emailQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rep, err := h.deps.SessionReport(r.Context(), id, email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromSessionReport(rep.Session, rep.Route, rep.Report))
}

// HandleLink handles PUT /events/{eventID}/sessions/{sessionID}.
func (h *SessionHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	h.link(w, r, h.deps.LinkSession)
}

// HandleUnlink handles DELETE /events/{eventID}/sessions/{sessionID}?jogger_email=.
func (h *SessionHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sessionID, err := idParam(r, "sessionID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	email, err := emailQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.deps.UnlinkSession(r.Context(), eventID, sessionID, email); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) link(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64, string) error) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sessionID, err := idParam(r, "sessionID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := fn(r.Context(), eventID, sessionID, req.JoggerEmail); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/types"
)

// CatalogDependencies defines the operations that create joggers, routes and events.
type CatalogDependencies interface {
	CreateJogger(ctx context.Context, j model.Jogger) (model.Jogger, error)
	CreateRoute(ctx context.Context, r model.Route) (model.Route, error)
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
}

// CatalogHandler handles account, route and event creation.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type createJoggerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=200"`
}

type createRouteRequest struct {
	Name       string  `json:"name" validate:"required,max=200"`
	DistanceKm float64 `json:"distance_km" validate:"gte=0"`
	AvgPace    float64 `json:"avg_pace" validate:"gte=0"`
}

type createEventRequest struct {
	Name            string    `json:"name" validate:"required,max=200"`
	Date            time.Time `json:"date" validate:"required"`
	MaxParticipants int       `json:"max_participants" validate:"required,gte=1"`
	RouteID         int64     `json:"route_id" validate:"omitempty,gte=1"`
}

// HandleCreateJogger handles POST /joggers.
func (h *CatalogHandler) HandleCreateJogger(w http.ResponseWriter, r *http.Request) {
	var req createJoggerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	j, err := h.deps.CreateJogger(r.Context(), model.Jogger{Email: req.Email, Name: req.Name})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromJogger(j))
}

// HandleCreateRoute handles POST /admin/routes.
func (h *CatalogHandler) HandleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req createRouteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	route, err := h.deps.CreateRoute(r.Context(), model.Route{
		Name:       req.Name,
		DistanceKm: req.DistanceKm,
		AvgPace:    req.AvgPace,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromRoute(route))
}

// HandleCreateEvent handles POST /organizer/events.
func (h *CatalogHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	e, err := h.deps.CreateEvent(r.Context(), model.Event{
		Name:            req.Name,
		Date:            req.Date,
		MaxParticipants: req.MaxParticipants,
		RouteID:         req.RouteID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromEvent(e))
}

package api

import (
	"context"
	"net/http"

	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/types"
)

// ReviewDependencies defines the review operations for events and routes.
type ReviewDependencies interface {
	SubmitEventReview(ctx context.Context, eventID int64, email string, rating int, comment string) (model.Review, error)
	SubmitRouteReview(ctx context.Context, routeID int64, email string, rating int, comment string) (model.Review, error)
	DeleteEventReview(ctx context.Context, eventID, reviewID int64, email string) error
	DeleteRouteReview(ctx context.Context, routeID, reviewID int64, email string) error
	EventReviews(ctx context.Context, eventID int64) ([]model.Review, model.ReviewSummary, error)
	RouteReviews(ctx context.Context, routeID int64) ([]model.Review, model.ReviewSummary, error)
}

// ReviewHandler handles review requests.
type ReviewHandler struct {
	deps ReviewDependencies
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(deps ReviewDependencies) *ReviewHandler {
	return &ReviewHandler{deps: deps}
}

// Rating range is enforced by the service so the error matches other callers.
type reviewRequest struct {
	JoggerEmail string `json:"jogger_email" validate:"required,email"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment" validate:"max=2000"`
}

type (
	submitFunc func(context.Context, int64, string, int, string) (model.Review, error)
	deleteFunc func(context.Context, int64, int64, string) error
	listFunc   func(context.Context, int64) ([]model.Review, model.ReviewSummary, error)
)

// HandleSubmitEventReview handles POST /events/{eventID}/reviews.
func (h *ReviewHandler) HandleSubmitEventReview(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "eventID", h.deps.SubmitEventReview)
}

// HandleSubmitRouteReview handles POST /routes/{routeID}/reviews.
func (h *ReviewHandler) HandleSubmitRouteReview(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "routeID", h.deps.SubmitRouteReview)
}

// HandleListEventReviews handles GET /events/{eventID}/reviews.
func (h *ReviewHandler) HandleListEventReviews(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "eventID", h.deps.EventReviews)
}

// HandleListRouteReviews handles GET /routes/{routeID}/reviews.
func (h *ReviewHandler) HandleListRouteReviews(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "routeID", h.deps.RouteReviews)
}

// HandleDeleteEventReview handles DELETE /events/{eventID}/reviews/{reviewID}?jogger_email=.
func (h *ReviewHandler) HandleDeleteEventReview(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "eventID", h.deps.DeleteEventReview)
}

// HandleDeleteRouteReview handles DELETE /routes/{routeID}/reviews/{reviewID}?jogger_email=.
func (h *ReviewHandler) HandleDeleteRouteReview(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "routeID", h.deps.DeleteRouteReview)
}

func (h *ReviewHandler) submit(w http.ResponseWriter, r *http.Request, param string, fn submitFunc) {
	targetID, err := idParam(r, param)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	rv, err := fn(r.Context(), targetID, req.JoggerEmail, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromReview(rv))
}

func (h *ReviewHandler) list(w http.ResponseWriter, r *http.Request, param string, fn listFunc) {
	targetID, err := idParam(r, param)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rs, summary, err := fn(r.Context(), targetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromReviews(rs, summary))
}

func (h *ReviewHandler) delete(w http.ResponseWriter, r *http.Request, param string, fn deleteFunc) {
	targetID, err := idParam(r, param)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	reviewID, err := idParam(r, "reviewID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	email, err := emailQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := fn(r.Context(), targetID, reviewID, email); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/types"
)

const defaultTopPerformersLimit = 10

// LeaderboardDependencies defines the ranking operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, eventID int64) ([]model.LeaderboardEntry, error)
	JoggerStanding(ctx context.Context, eventID int64, email string) (model.LeaderboardEntry, error)
	TopPerformers(ctx context.Context, eventIDs []int64, limit int) ([]model.TopPerformer, error)
}

// LeaderboardHandler handles leaderboard and cross-event report requests.
type LeaderboardHandler struct {
	deps         LeaderboardDependencies
	defaultLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, defaultLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:         deps,
		defaultLimit: defaultLimit,
	}
}

// HandleGetLeaderboard handles GET /events/{eventID}/leaderboard.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromLeaderboard(eventID, entries))
}

// HandleGetStanding handles GET /events/{eventID}/leaderboard/{email}.
func (h *LeaderboardHandler) HandleGetStanding(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.deps.JoggerStanding(r.Context(), eventID, email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromLeaderboardEntry(entry))
}

// HandleGetTopPerformers handles GET /reports/top-performers?event_id=1&event_id=2&limit=N.
// event_id may also be a comma-separated list.
func (h *LeaderboardHandler) HandleGetTopPerformers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids, err := parseEventIDs(q["event_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit := h.defaultLimit
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be an integer", ErrInvalidParam))
			return
		}
	}
	top, err := h.deps.TopPerformers(r.Context(), ids, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromTopPerformers(top))
}

func parseEventIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id < 1 {
				return nil, fmt.Errorf("%w: event_id %q", ErrInvalidParam, part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/pacer/pkg/logger"
	"github.com/okian/pacer/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	CatalogDependencies
	RegistrationDependencies
	SessionDependencies
	LeaderboardDependencies
	ReviewDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	catalogHandler      *CatalogHandler
	registrationHandler *RegistrationHandler
	sessionHandler      *SessionHandler
	leaderboardHandler  *LeaderboardHandler
	reviewHandler       *ReviewHandler

	corsOrigins []string
	logger      logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the origins allowed by the CORS middleware.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithDefaultTopPerformersLimit sets the limit used when a request omits it.
func WithDefaultTopPerformersLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.leaderboardHandler.defaultLimit = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		catalogHandler:      NewCatalogHandler(deps),
		registrationHandler: NewRegistrationHandler(deps),
		sessionHandler:      NewSessionHandler(deps),
		leaderboardHandler:  NewLeaderboardHandler(deps, defaultTopPerformersLimit),
		reviewHandler:       NewReviewHandler(deps),
		corsOrigins:         []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	return s
}

// Router builds the chi router with middleware and every route attached.
func (s *Server) Router(ctx context.Context) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/events/{eventID}", func(r chi.Router) {
		r.Get("/availability", s.registrationHandler.HandleAvailability)
		r.Post("/registrations", s.registrationHandler.HandleRegister)
		r.Delete("/registrations/{email}", s.registrationHandler.HandleUnregister)

		r.Put("/sessions/{sessionID}", s.sessionHandler.HandleLink)
		r.Delete("/sessions/{sessionID}", s.sessionHandler.HandleUnlink)

		r.Get("/leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
		r.Get("/leaderboard/{email}", s.leaderboardHandler.HandleGetStanding)

		r.Get("/reviews", s.reviewHandler.HandleListEventReviews)
		r.Post("/reviews", s.reviewHandler.HandleSubmitEventReview)
		r.Delete("/reviews/{reviewID}", s.reviewHandler.HandleDeleteEventReview)
	})
	r.Post("/joggers", s.catalogHandler.HandleCreateJogger)
	r.Post("/admin/routes", s.catalogHandler.HandleCreateRoute)
	r.Route("/organizer/events", func(r chi.Router) {
		r.Post("/", s.catalogHandler.HandleCreateEvent)
		r.Get("/{eventID}/registrations", s.registrationHandler.HandleListRegistrations)
		r.Post("/{eventID}/registrations", s.registrationHandler.HandleEnroll)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.sessionHandler.HandleList)
		r.Post("/", s.sessionHandler.HandleLog)
		r.Put("/{sessionID}", s.sessionHandler.HandleUpdate)
		r.Delete("/{sessionID}", s.sessionHandler.HandleDelete)
		r.Get("/{sessionID}/report", s.sessionHandler.HandleReport)
	})

	r.Get("/reports/top-performers", s.leaderboardHandler.HandleGetTopPerformers)

	r.Route("/routes/{routeID}/reviews", func(r chi.Router) {
		r.Get("/", s.reviewHandler.HandleListRouteReviews)
		r.Post("/", s.reviewHandler.HandleSubmitRouteReview)
		r.Delete("/{reviewID}", s.reviewHandler.HandleDeleteRouteReview)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

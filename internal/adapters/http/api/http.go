// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/chronoverse/chronoverse/internal/app"
	"github.com/chronoverse/chronoverse/internal/domain/types"
	"github.com/chronoverse/chronoverse/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TimelineDependencies
	ClusterDependencies
	TiersProvider
}

// Server wires HTTP routes for the timeline API.
type Server struct {
	statusHandler   *StatusHandler
	timelineHandler *TimelineHandler
	clusterHandler  *ClusterHandler
	tiersHandler    *TiersHandler
	log             logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		statusHandler:   NewStatusHandler(statsProvider),
		timelineHandler: NewTimelineHandler(deps),
		clusterHandler:  NewClusterHandler(deps),
		tiersHandler:    NewTiersHandler(deps),
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.instrument(s.statusHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", s.instrument(s.statusHandler.HandleReady, "readyz"))
	mux.HandleFunc("/stats", s.instrument(s.statusHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/timeline", s.instrument(s.timelineHandler.HandleTimeline, "timeline"))
	mux.HandleFunc("/api/data", s.instrument(s.timelineHandler.HandleData, "data"))
	mux.HandleFunc("/api/clusters/", s.instrument(s.clusterHandler.HandleGetCluster, "clusters"))
	mux.HandleFunc("/api/tiers", s.instrument(s.tiersHandler.HandleTiers, "tiers"))
	mux.Handle("/metrics", MetricsHandler())
}

func (s *Server) instrument(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return RequestIDMiddleware(MetricsMiddleware(s.logFailures(next, endpoint), endpoint))
}

// logFailures logs responses with a server error status.
func (s *Server) logFailures(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if wrapped.statusCode >= statusInternalError {
			s.log.Error(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("request_id", RequestID(r.Context())),
				logger.Int("status", wrapped.statusCode),
			)
		}
	}
}

// Timeline aliases the wire shape returned by /api/timeline.
type Timeline = types.Timeline

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

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrClusterNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

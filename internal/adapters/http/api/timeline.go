package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	service "github.com/chronoverse/chronoverse/internal/app"
	"github.com/chronoverse/chronoverse/internal/domain/types"
)

// TimelineDependencies defines the window query operations.
type TimelineDependencies interface {
	DefaultQuery() service.Query
	Timeline(ctx context.Context, q service.Query) (types.Timeline, error)
	Data(ctx context.Context, start, end int64) ([]types.Event, error)
}

// TimelineHandler serves /api/timeline and /api/data.
type TimelineHandler struct {
	deps TimelineDependencies
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(deps TimelineDependencies) *TimelineHandler {
	return &TimelineHandler{deps: deps}
}

// HandleTimeline handles GET /api/timeline?start_year=&end_year=&clustering=&spans=.
func (h *TimelineHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_timeline"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := parseQuery(r.URL.Query(), h.deps.DefaultQuery())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	tl, err := h.deps.Timeline(r.Context(), q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// HandleData handles GET /api/data?start_year=&end_year= and returns the raw
// events of the window.
func (h *TimelineHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_data"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := parseQuery(r.URL.Query(), h.deps.DefaultQuery())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	events, err := h.deps.Data(r.Context(), q.StartYear, q.EndYear)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window": types.Window{StartYear: q.StartYear, EndYear: q.EndYear},
		"events": events,
	})
}

// parseQuery overlays the request parameters on def. Absent parameters keep
// their defaults.
func parseQuery(v url.Values, def service.Query) (service.Query, error) {
	q := def
	var err error
	if q.StartYear, err = intParam(v, "start_year", def.StartYear); err != nil {
		return q, err
	}
	if q.EndYear, err = intParam(v, "end_year", def.EndYear); err != nil {
		return q, err
	}
	if q.EnableClustering, err = boolParam(v, "clustering", def.EnableClustering); err != nil {
		return q, err
	}
	if q.EnableSpans, err = boolParam(v, "spans", def.EnableSpans); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(v url.Values, key string, def int64) (int64, error) {
	s := v.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func boolParam(v url.Values, key string, def bool) (bool, error) {
	s := v.Get(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return b, nil
}

package api

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chronoverse/chronoverse/pkg/metrics"
)

// StatsProvider reports service statistics. The "started" key drives
// readiness.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// StatusHandler serves the operational endpoints: liveness, readiness and
// stats.
type StatusHandler struct {
	stats     StatsProvider
	startedAt time.Time
	now       func() time.Time
}

// NewStatusHandler creates a StatusHandler; uptime is measured from now.
func NewStatusHandler(stats StatsProvider) *StatusHandler {
	return &StatusHandler{stats: stats, startedAt: time.Now(), now: time.Now}
}

// HandleHealth serves GET /healthz. It answers as long as the process serves
// HTTP.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady serves GET /readyz: 200 once the service has started, 503
// before that and after shutdown.
func (h *StatusHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if started, _ := h.stats.GetStats(r.Context())["started"].(bool); !started {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStats serves GET /stats: the provider's stats plus server uptime.
func (h *StatusHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	out := maps.Clone(h.stats.GetStats(r.Context()))
	if out == nil {
		out = make(map[string]any, 1)
	}
	out["uptime_seconds"] = int64(h.now().Sub(h.startedAt).Seconds())
	writeJSON(w, http.StatusOK, out)
}

// MetricsHandler serves the current metrics registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/chronoverse/chronoverse/internal/domain/types"
)

// ClusterDependencies defines the cluster expansion operation.
type ClusterDependencies interface {
	ExpandCluster(ctx context.Context, id string, start, end int64) (types.Cluster, error)
}

// ClusterHandler handles cluster expansion requests.
type ClusterHandler struct {
	deps ClusterDependencies
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(deps ClusterDependencies) *ClusterHandler {
	return &ClusterHandler{deps: deps}
}

// HandleGetCluster handles GET /api/clusters/{id}?start_year=&end_year=.
// Both years are required because cluster ids are only stable within the
// window that produced them.
func (h *ClusterHandler) HandleGetCluster(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_cluster"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/clusters/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	v := r.URL.Query()
	if v.Get("start_year") == "" || v.Get("end_year") == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	start, err := intParam(v, "start_year", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	end, err := intParam(v, "end_year", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	c, err := h.deps.ExpandCluster(r.Context(), id, start, end)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

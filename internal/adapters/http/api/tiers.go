package api

import (
	"net/http"

	"github.com/chronoverse/chronoverse/internal/domain/types"
)

// TiersProvider exposes the zoom tier table.
type TiersProvider interface {
	Tiers() []types.TierInfo
}

// TiersHandler serves /api/tiers.
type TiersHandler struct {
	deps TiersProvider
}

// NewTiersHandler creates a new tiers handler.
func NewTiersHandler(deps TiersProvider) *TiersHandler {
	return &TiersHandler{deps: deps}
}

// HandleTiers handles GET /api/tiers requests.
func (h *TiersHandler) HandleTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Tiers())
}

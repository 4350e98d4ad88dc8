package api

import (
	"net/http"

	"github.com/erazemk/assettrack/internal/events"
	"github.com/erazemk/assettrack/internal/service"
)

// DashboardHandler serves the admin overview and its live event feed.
type DashboardHandler struct {
	Svc *service.Service
	Hub *events.Hub
}

// Get handles GET /api/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.Svc.Dashboard(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	d.RecentAssignments = emptyIfNil(d.RecentAssignments)
	d.AssetsByCategory = emptyIfNil(d.AssetsByCategory)
	jsonResponse(w, http.StatusOK, d)
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.DashboardStats(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Live handles GET /api/ws/dashboard, upgrading to a websocket that receives
// every assignment and return as it is committed.
func (h *DashboardHandler) Live(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		jsonError(w, http.StatusNotFound, "live updates are disabled")
		return
	}
	h.Hub.ServeWS(w, r)
}

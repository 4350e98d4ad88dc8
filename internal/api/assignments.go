package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/service"
)

// AssignmentsHandler exposes the assignment ledger.
type AssignmentsHandler struct {
	Svc *service.Service
}

// List handles GET /api/assignments?asset_id=&user_id=&open=true&limit=.
func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter model.AssignmentFilter
	var err error

	if v := q.Get("asset_id"); v != "" {
		if filter.AssetID, err = strconv.ParseInt(v, 10, 64); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid asset id")
			return
		}
	}
	if v := q.Get("user_id"); v != "" {
		if filter.UserID, err = strconv.ParseInt(v, 10, 64); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid user id")
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	filter.OpenOnly = q.Get("open") == "true"

	assignments, err := h.Svc.ListAssignments(r.Context(), principal(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(assignments))
}

// Recent handles GET /api/assignments/recent.
func (h *AssignmentsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Svc.RecentAssignments(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(assignments))
}

// Get handles GET /api/assignments/{id}.
func (h *AssignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	assignment, err := h.Svc.GetAssignment(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, assignment)
}

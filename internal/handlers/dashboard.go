package handlers

import (
	"net/http"
	"strconv"

	"github.com/pipewatch/pipewatch/internal/api"
)

// handleDashboardOverview handles GET /api/dashboard/overview
func (h *APIHandler) handleDashboardOverview(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	overview, err := h.dashboardService.GetOverview(claims.OrganizationID)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, overview)
}

// handleDashboardActivity handles GET /api/dashboard/recent-activity
func (h *APIHandler) handleDashboardActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.RespondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	activity, err := h.dashboardService.GetRecentActivity(claims.OrganizationID, limit)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, activity)
}

// handleDashboardPipelineHealth handles GET /api/dashboard/pipeline-health
func (h *APIHandler) handleDashboardPipelineHealth(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	health, err := h.dashboardService.GetPipelineHealth(claims.OrganizationID)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, health)
}

// handleDashboardDataSourceHealth handles GET /api/dashboard/data-source-health
func (h *APIHandler) handleDashboardDataSourceHealth(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	health, err := h.dashboardService.GetDataSourceHealth(claims.OrganizationID)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, health)
}

// handleDashboardMetrics handles GET /api/dashboard/metrics
func (h *APIHandler) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	days, ok := daysWindow(w, r)
	if !ok {
		return
	}
	trend, err := h.dashboardService.GetMetricsTrend(claims.OrganizationID, days)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, trend)
}

// handleDashboardTopPipelines handles GET /api/dashboard/top-pipelines
func (h *APIHandler) handleDashboardTopPipelines(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	days, ok := daysWindow(w, r)
	if !ok {
		return
	}
	top, err := h.dashboardService.GetTopPipelines(claims.OrganizationID, days)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, top)
}

// daysWindow parses the optional days query parameter, zero meaning default
func daysWindow(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "Invalid days")
		return 0, false
	}
	return n, true
}

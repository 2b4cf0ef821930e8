package handlers

import (
	"net/http"
	"strconv"

	"github.com/pipewatch/pipewatch/internal/api"
)

// handleListDataSources handles GET /api/monitoring/data-sources
func (h *APIHandler) handleListDataSources(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	p := api.ParsePagination(r)
	sources, total, err := h.monitoringService.ListDataSources(claims.OrganizationID, p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToDataSourceResponses(sources), p, total))
}

// handleCreateDataSource handles POST /api/monitoring/data-sources
func (h *APIHandler) handleCreateDataSource(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req api.CreateDataSourceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ds, err := h.monitoringService.CreateDataSource(claims.OrganizationID, claims.UserID, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, api.ToDataSourceResponse(ds))
}

// handleGetDataSource handles GET /api/monitoring/data-sources/{id}
func (h *APIHandler) handleGetDataSource(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ds, err := h.monitoringService.GetDataSource(claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToDataSourceResponse(ds))
}

// handleUpdateDataSource handles PUT /api/monitoring/data-sources/{id}
func (h *APIHandler) handleUpdateDataSource(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.UpdateDataSourceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ds, err := h.monitoringService.UpdateDataSource(claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToDataSourceResponse(ds))
}

// handleDeleteDataSource handles DELETE /api/monitoring/data-sources/{id}
func (h *APIHandler) handleDeleteDataSource(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.monitoringService.DeleteDataSource(claims.OrganizationID, id); err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondNoContent(w)
}

// handleTestDataSource handles POST /api/monitoring/data-sources/{id}/test-connection
func (h *APIHandler) handleTestDataSource(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	latency, err := h.monitoringService.TestDataSource(r.Context(), claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"latency_ms": float64(latency.Microseconds()) / 1000.0,
	})
}

// handleListHealthChecks handles GET /api/monitoring/health-checks
func (h *APIHandler) handleListHealthChecks(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var dataSourceID uint
	if raw := r.URL.Query().Get("data_source_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			api.RespondError(w, http.StatusBadRequest, "Invalid data_source_id")
			return
		}
		dataSourceID = uint(id)
	}

	p := api.ParsePagination(r)
	checks, total, err := h.monitoringService.ListHealthChecks(claims.OrganizationID, dataSourceID, p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToHealthCheckResponses(checks), p, total))
}

// handleCreateHealthCheck handles POST /api/monitoring/health-checks
func (h *APIHandler) handleCreateHealthCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req api.CreateHealthCheckRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hc, err := h.monitoringService.CreateHealthCheck(claims.OrganizationID, claims.UserID, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, api.ToHealthCheckResponse(hc))
}

// handleGetHealthCheck handles GET /api/monitoring/health-checks/{id}
func (h *APIHandler) handleGetHealthCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	hc, err := h.monitoringService.GetHealthCheck(claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToHealthCheckResponse(hc))
}

// handleUpdateHealthCheck handles PUT /api/monitoring/health-checks/{id}
func (h *APIHandler) handleUpdateHealthCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.UpdateHealthCheckRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hc, err := h.monitoringService.UpdateHealthCheck(claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToHealthCheckResponse(hc))
}

// handleDeleteHealthCheck handles DELETE /api/monitoring/health-checks/{id}
func (h *APIHandler) handleDeleteHealthCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.monitoringService.DeleteHealthCheck(claims.OrganizationID, id); err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondNoContent(w)
}

// handleRunHealthCheck handles POST /api/monitoring/health-checks/{id}/run
func (h *APIHandler) handleRunHealthCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	// Connectivity checks are triggered with an empty body.
	var req api.RunHealthCheckRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}

	result, fired, err := h.monitoringService.RunHealthCheck(r.Context(), claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"result":       api.ToHealthCheckResultResponse(result),
		"alerts_fired": len(fired),
	})
}

// handleListHealthCheckResults handles GET /api/monitoring/health-checks/{id}/results
func (h *APIHandler) handleListHealthCheckResults(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p := api.ParsePagination(r)
	results, total, err := h.monitoringService.ListHealthCheckResults(claims.OrganizationID, id, p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToHealthCheckResultResponses(results), p, total))
}

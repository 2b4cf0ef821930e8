package handlers

import (
	"net/http"

	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/services"
)

// handleListPipelines handles GET /api/pipelines
func (h *APIHandler) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	filters := services.PipelineFilters{
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
		Search: r.URL.Query().Get("search"),
	}
	p := api.ParsePagination(r)

	pipelines, total, err := h.pipelineService.ListPipelines(claims.OrganizationID, filters, p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToPipelineResponses(pipelines), p, total))
}

// handleCreatePipeline handles POST /api/pipelines
func (h *APIHandler) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req api.CreatePipelineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pipeline, err := h.pipelineService.CreatePipeline(claims.OrganizationID, claims.UserID, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, api.ToPipelineResponse(pipeline))
}

// handleGetPipeline handles GET /api/pipelines/{id}
func (h *APIHandler) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	pipeline, err := h.pipelineService.GetPipeline(claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToPipelineResponse(pipeline))
}

// handleUpdatePipeline handles PUT /api/pipelines/{id}
func (h *APIHandler) handleUpdatePipeline(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.UpdatePipelineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pipeline, err := h.pipelineService.UpdatePipeline(claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToPipelineResponse(pipeline))
}

// handleDeletePipeline handles DELETE /api/pipelines/{id}
func (h *APIHandler) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.pipelineService.DeletePipeline(claims.OrganizationID, id); err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondNoContent(w)
}

// handleListRuns handles GET /api/pipelines/{id}/runs
func (h *APIHandler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p := api.ParsePagination(r)
	runs, total, err := h.pipelineService.ListRuns(claims.OrganizationID, id, r.URL.Query().Get("status"), p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToPipelineRunResponses(runs), p, total))
}

// handleRecordRun handles POST /api/pipelines/{id}/runs
func (h *APIHandler) handleRecordRun(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.RecordRunRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	run, fired, err := h.pipelineService.RecordRun(claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"run":          api.ToPipelineRunResponse(run),
		"alerts_fired": len(fired),
	})
}

// handleTriggerRun handles POST /api/pipelines/{id}/trigger
func (h *APIHandler) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	run, err := h.pipelineService.TriggerRun(claims.OrganizationID, id, claims.Username)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusAccepted, api.ToPipelineRunResponse(run))
}

// handleListMetrics handles GET /api/pipelines/{id}/metrics
func (h *APIHandler) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p := api.ParsePagination(r)
	metrics, total, err := h.pipelineService.ListMetrics(claims.OrganizationID, id, r.URL.Query().Get("name"), p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(metrics, p, total))
}

// handleRecordMetric handles POST /api/pipelines/{id}/metrics
func (h *APIHandler) handleRecordMetric(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.RecordMetricRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	metric, err := h.pipelineService.RecordMetric(claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, metric)
}

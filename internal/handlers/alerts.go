package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/services"
)

// handleListRules handles GET /api/alerts/rules
func (h *APIHandler) handleListRules(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	p := api.ParsePagination(r)
	rules, total, err := h.alertService.ListRules(claims.OrganizationID, r.URL.Query().Get("rule_type"), p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToAlertRuleResponses(rules), p, total))
}

// handleCreateRule handles POST /api/alerts/rules
func (h *APIHandler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req api.CreateAlertRuleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rule, err := h.alertService.CreateRule(claims.OrganizationID, claims.UserID, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, api.ToAlertRuleResponse(rule))
}

// handleGetRule handles GET /api/alerts/rules/{id}
func (h *APIHandler) handleGetRule(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rule, err := h.alertService.GetRule(claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToAlertRuleResponse(rule))
}

// handleUpdateRule handles PUT /api/alerts/rules/{id}
func (h *APIHandler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.UpdateAlertRuleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rule, err := h.alertService.UpdateRule(claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToAlertRuleResponse(rule))
}

// handleDeleteRule handles DELETE /api/alerts/rules/{id}
func (h *APIHandler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.alertService.DeleteRule(claims.OrganizationID, id); err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondNoContent(w)
}

// handleListAlerts handles GET /api/alerts
func (h *APIHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filters := services.AlertFilters{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
	}
	if raw := q.Get("rule_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			api.RespondError(w, http.StatusBadRequest, "Invalid rule_id")
			return
		}
		filters.RuleID = uint(id)
	}

	p := api.ParsePagination(r)
	items, total, err := h.alertService.ListAlerts(claims.OrganizationID, filters, p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToAlertResponses(items, time.Now()), p, total))
}

// handleGetAlert handles GET /api/alerts/{id}
func (h *APIHandler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	alert, err := h.alertService.GetAlert(claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToAlertResponse(alert, time.Now()))
}

// handleAcknowledgeAlert handles POST /api/alerts/{id}/acknowledge
func (h *APIHandler) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	alert, err := h.alertService.Acknowledge(claims.OrganizationID, id, claims.Username)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToAlertResponse(alert, time.Now()))
}

// handleResolveAlert handles POST /api/alerts/{id}/resolve
func (h *APIHandler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	alert, err := h.alertService.Resolve(claims.OrganizationID, id, claims.Username)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToAlertResponse(alert, time.Now()))
}

// handleAlertHistory handles GET /api/alerts/{id}/history
func (h *APIHandler) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entries, err := h.alertService.GetHistory(claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"data": api.ToAlertHistoryResponses(entries),
	})
}

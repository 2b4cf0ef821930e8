// Package handlers wires the HTTP surface: REST endpoints for the UI and
// schedulers, the websocket alert stream, and operational endpoints.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/events"
	"github.com/pipewatch/pipewatch/internal/middleware"
	"github.com/pipewatch/pipewatch/internal/services"
)

// APIHandler handles the REST API for the UI and external schedulers
type APIHandler struct {
	userService       *services.UserService
	pipelineService   *services.PipelineService
	monitoringService *services.MonitoringService
	alertService      *services.AlertService
	dashboardService  *services.DashboardService
	broadcaster       *events.Broadcaster
	auth              *middleware.JWTAuthMiddleware
	loginLimiter      *middleware.RateLimiter
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(
	userService *services.UserService,
	pipelineService *services.PipelineService,
	monitoringService *services.MonitoringService,
	alertService *services.AlertService,
	dashboardService *services.DashboardService,
	broadcaster *events.Broadcaster,
	auth *middleware.JWTAuthMiddleware,
) *APIHandler {
	return &APIHandler{
		userService:       userService,
		pipelineService:   pipelineService,
		monitoringService: monitoringService,
		alertService:      alertService,
		dashboardService:  dashboardService,
		broadcaster:       broadcaster,
		auth:              auth,
	}
}

// SetLoginRateLimiter installs a per-IP rate limit on the credential
// endpoints. Must be called before SetupRoutes.
func (h *APIHandler) SetLoginRateLimiter(rl *middleware.RateLimiter) {
	h.loginLimiter = rl
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	register := http.HandlerFunc(h.handleRegister)
	login := http.HandlerFunc(h.handleLogin)
	if h.loginLimiter != nil {
		register = h.loginLimiter.WrapFunc(h.handleRegister)
		login = h.loginLimiter.WrapFunc(h.handleLogin)
	}

	// Auth
	mux.Handle("POST /auth/register", register)
	mux.Handle("POST /auth/login", login)
	mux.HandleFunc("POST /auth/refresh", h.handleRefreshToken)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /auth/me", h.handleGetProfile)
	mux.HandleFunc("PUT /auth/me", h.handleUpdateProfile)

	// Users
	mux.HandleFunc("GET /api/users/roles", h.handleListRoles)
	mux.HandleFunc("GET /api/users", h.handleListUsers)
	mux.HandleFunc("POST /api/users", h.handleCreateUser)
	mux.HandleFunc("GET /api/users/{id}", h.handleGetUser)
	mux.HandleFunc("PUT /api/users/{id}", h.handleUpdateUser)
	mux.HandleFunc("DELETE /api/users/{id}", h.handleDeactivateUser)

	// Pipelines
	mux.HandleFunc("GET /api/pipelines", h.handleListPipelines)
	mux.HandleFunc("POST /api/pipelines", h.handleCreatePipeline)
	mux.HandleFunc("GET /api/pipelines/{id}", h.handleGetPipeline)
	mux.HandleFunc("PUT /api/pipelines/{id}", h.handleUpdatePipeline)
	mux.HandleFunc("DELETE /api/pipelines/{id}", h.handleDeletePipeline)
	mux.HandleFunc("GET /api/pipelines/{id}/runs", h.handleListRuns)
	mux.HandleFunc("POST /api/pipelines/{id}/runs", h.handleRecordRun)
	mux.HandleFunc("POST /api/pipelines/{id}/trigger", h.handleTriggerRun)
	mux.HandleFunc("GET /api/pipelines/{id}/metrics", h.handleListMetrics)
	mux.HandleFunc("POST /api/pipelines/{id}/metrics", h.handleRecordMetric)

	// Monitoring
	mux.HandleFunc("GET /api/monitoring/data-sources", h.handleListDataSources)
	mux.HandleFunc("POST /api/monitoring/data-sources", h.handleCreateDataSource)
	mux.HandleFunc("GET /api/monitoring/data-sources/{id}", h.handleGetDataSource)
	mux.HandleFunc("PUT /api/monitoring/data-sources/{id}", h.handleUpdateDataSource)
	mux.HandleFunc("DELETE /api/monitoring/data-sources/{id}", h.handleDeleteDataSource)
	mux.HandleFunc("POST /api/monitoring/data-sources/{id}/test-connection", h.handleTestDataSource)
	mux.HandleFunc("GET /api/monitoring/health-checks", h.handleListHealthChecks)
	mux.HandleFunc("POST /api/monitoring/health-checks", h.handleCreateHealthCheck)
	mux.HandleFunc("GET /api/monitoring/health-checks/{id}", h.handleGetHealthCheck)
	mux.HandleFunc("PUT /api/monitoring/health-checks/{id}", h.handleUpdateHealthCheck)
	mux.HandleFunc("DELETE /api/monitoring/health-checks/{id}", h.handleDeleteHealthCheck)
	mux.HandleFunc("POST /api/monitoring/health-checks/{id}/run", h.handleRunHealthCheck)
	mux.HandleFunc("GET /api/monitoring/health-checks/{id}/results", h.handleListHealthCheckResults)

	// Alert rules and alerts
	mux.HandleFunc("GET /api/alerts/rules", h.handleListRules)
	mux.HandleFunc("POST /api/alerts/rules", h.handleCreateRule)
	mux.HandleFunc("GET /api/alerts/rules/{id}", h.handleGetRule)
	mux.HandleFunc("PUT /api/alerts/rules/{id}", h.handleUpdateRule)
	mux.HandleFunc("DELETE /api/alerts/rules/{id}", h.handleDeleteRule)
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)
	mux.HandleFunc("GET /api/alerts/stream", h.handleAlertStream)
	mux.HandleFunc("GET /api/alerts/{id}", h.handleGetAlert)
	mux.HandleFunc("POST /api/alerts/{id}/acknowledge", h.handleAcknowledgeAlert)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", h.handleResolveAlert)
	mux.HandleFunc("GET /api/alerts/{id}/history", h.handleAlertHistory)

	// Dashboard
	mux.HandleFunc("GET /api/dashboard/overview", h.handleDashboardOverview)
	mux.HandleFunc("GET /api/dashboard/recent-activity", h.handleDashboardActivity)
	mux.HandleFunc("GET /api/dashboard/pipeline-health", h.handleDashboardPipelineHealth)
	mux.HandleFunc("GET /api/dashboard/data-source-health", h.handleDashboardDataSourceHealth)
	mux.HandleFunc("GET /api/dashboard/metrics", h.handleDashboardMetrics)
	mux.HandleFunc("GET /api/dashboard/top-pipelines", h.handleDashboardTopPipelines)
}

// claims returns the authenticated user's claims, responding 401 when absent
func (h *APIHandler) claims(w http.ResponseWriter, r *http.Request) (*middleware.UserClaims, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		api.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return claims, true
}

// requireRole responds 403 unless the caller holds one of the given roles
func requireRole(w http.ResponseWriter, claims *middleware.UserClaims, roles ...string) bool {
	for _, role := range roles {
		if claims.Role == role {
			return true
		}
	}
	api.RespondError(w, http.StatusForbidden, "Insufficient permissions")
	return false
}

// pathID parses the {id} path segment, responding 400 on garbage
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		api.RespondError(w, http.StatusBadRequest, "Invalid id in path")
		return 0, false
	}
	return uint(id), true
}

// decodeAndValidate decodes the request body and runs struct validation,
// writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := api.DecodeJSON(r, dst); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if fieldErrors := api.Validate(dst); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return false
	}
	return true
}

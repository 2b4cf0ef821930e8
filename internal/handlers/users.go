package handlers

import (
	"net/http"

	"github.com/pipewatch/pipewatch/internal/api"
)

// handleListUsers handles GET /api/users
func (h *APIHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	p := api.ParsePagination(r)
	users, total, err := h.userService.ListUsers(claims.OrganizationID, p)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewPaginatedResponse(api.ToUserResponses(users), p, total))
}

// handleListRoles handles GET /api/users/roles
func (h *APIHandler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.claims(w, r); !ok {
		return
	}

	roles, err := h.userService.ListRoles()
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": roles})
}

// handleCreateUser handles POST /api/users
func (h *APIHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	if !requireRole(w, claims, "admin", "manager") {
		return
	}

	var req api.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.CreateUser(claims.OrganizationID, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, api.ToUserResponse(user))
}

// handleGetUser handles GET /api/users/{id}
func (h *APIHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(claims.OrganizationID, id)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToUserResponse(user))
}

// handleUpdateUser handles PUT /api/users/{id}
func (h *APIHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	if !requireRole(w, claims, "admin", "manager") {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateUser(claims.OrganizationID, id, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToUserResponse(user))
}

// handleDeactivateUser handles DELETE /api/users/{id}
func (h *APIHandler) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	if !requireRole(w, claims, "admin") {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.userService.DeactivateUser(claims.OrganizationID, id); err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondNoContent(w)
}

package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/services"
)

// handleRegister handles POST /auth/register
func (h *APIHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	org, user, err := h.userService.RegisterOrganization(&req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}

	token, err := h.auth.GenerateToken(user.ID, org.ID, user.Username, string(user.Role.Name))
	if err != nil {
		log.Printf("handleRegister: token generation failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	api.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"organization": api.ToOrganizationResponse(org),
		"token": api.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   h.auth.TokenTTL(),
			User:        api.ToUserResponse(user),
		},
	})
}

// handleLogin handles POST /auth/login
func (h *APIHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Authenticate(req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		api.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}

	token, err := h.auth.GenerateToken(user.ID, user.OrganizationID, user.Username, string(user.Role.Name))
	if err != nil {
		log.Printf("handleLogin: token generation failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.auth.TokenTTL(),
		User:        api.ToUserResponse(user),
	})
}

// handleRefreshToken handles POST /auth/refresh. It exchanges a valid token
// for a fresh one with a full expiry window.
func (h *APIHandler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	// Re-read the user so deactivation and role changes take effect.
	user, err := h.userService.GetUser(claims.OrganizationID, claims.UserID)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	if !user.IsActive {
		api.RespondError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	token, err := h.auth.GenerateToken(user.ID, user.OrganizationID, user.Username, string(user.Role.Name))
	if err != nil {
		log.Printf("handleRefreshToken: token generation failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.auth.TokenTTL(),
		User:        api.ToUserResponse(user),
	})
}

// handleLogout handles POST /auth/logout. Tokens are stateless, so logout
// is a client-side discard; the endpoint exists so clients have a uniform
// auth surface.
func (h *APIHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.claims(w, r); !ok {
		return
	}
	api.RespondNoContent(w)
}

// handleGetProfile handles GET /auth/me
func (h *APIHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(claims.OrganizationID, claims.UserID)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToUserResponse(user))
}

// handleUpdateProfile handles PUT /auth/me
func (h *APIHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req api.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(claims.OrganizationID, claims.UserID, &req)
	if err != nil {
		api.RespondDomainError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ToUserResponse(user))
}

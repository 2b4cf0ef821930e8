package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestJWT(enabled bool) *JWTAuthMiddleware {
	return NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:        enabled,
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
		SkipPaths:      []string{"/health", "/auth/*"},
	})
}

func TestJWTAuth_Disabled(t *testing.T) {
	m := newTestJWT(false)

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/pipelines", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestJWTAuth_MissingToken(t *testing.T) {
	m := newTestJWT(true)

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/pipelines", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	m := newTestJWT(true)

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/auth/login", "/auth/register"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("path %s: expected status 200, got %d", path, rec.Code)
		}
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	m := newTestJWT(true)

	token, err := m.GenerateToken(7, 3, "jordan", "analyst")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var gotClaims *UserClaims
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/pipelines", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if gotClaims == nil {
		t.Fatal("expected claims in request context")
	}
	if gotClaims.UserID != 7 || gotClaims.OrganizationID != 3 {
		t.Errorf("claims = user %d org %d, want user 7 org 3", gotClaims.UserID, gotClaims.OrganizationID)
	}
	if gotClaims.Role != "analyst" {
		t.Errorf("Role = %q, want analyst", gotClaims.Role)
	}
}

func TestJWTAuth_TokenViaQueryParam(t *testing.T) {
	m := newTestJWT(true)

	token, err := m.GenerateToken(1, 1, "jordan", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/stream?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	m := newTestJWT(true)

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/pipelines", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	issuer := NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:        true,
		JWTSecret:      "other-secret",
		JWTExpiryHours: 1,
	})
	token, err := issuer.GenerateToken(1, 1, "jordan", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	m := newTestJWT(true)
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected validation to fail for token signed with another secret")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-Passw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword("s3cret-Passw0rd", hash) {
		t.Error("expected matching password to verify")
	}
	if CheckPassword("wrong-password", hash) {
		t.Error("expected non-matching password to fail")
	}
}

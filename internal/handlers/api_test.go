package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/database"
	"github.com/pipewatch/pipewatch/internal/events"
	"github.com/pipewatch/pipewatch/internal/middleware"
	"github.com/pipewatch/pipewatch/internal/services"
)

type testAPI struct {
	db          *gorm.DB
	handler     http.Handler
	auth        *middleware.JWTAuthMiddleware
	broadcaster *events.Broadcaster
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := database.SeedRoles(db); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}

	engine := alerts.NewEngine(db)
	broadcaster := events.NewBroadcaster()
	engine.SetPublisher(broadcaster)

	auth := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:        true,
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
		SkipPaths:      []string{"/health", "/metrics", "/auth/register", "/auth/login"},
	})

	apiHandler := NewAPIHandler(
		services.NewUserService(db),
		services.NewPipelineService(db, engine),
		services.NewMonitoringService(db, engine),
		services.NewAlertService(db, engine),
		services.NewDashboardService(db),
		broadcaster,
		auth,
	)

	mux := http.NewServeMux()
	apiHandler.SetupRoutes(mux)
	NewHTTPHandler().SetupRoutes(mux)

	return &testAPI{db: db, handler: auth.Wrap(mux), auth: auth, broadcaster: broadcaster}
}

// do performs a request against the handler chain, encoding body as JSON
// when present and attaching the bearer token when non-empty.
func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// register creates an organization through the API and returns a usable token
func (a *testAPI) register(t *testing.T, slug string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]interface{}{
		"organization_name": "Org " + slug,
		"organization_slug": slug,
		"email":             slug + "@example.com",
		"username":          "admin-" + slug,
		"password":          "Sup3rSecret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	decodeBody(t, rec, &resp)
	if resp.Token.AccessToken == "" {
		t.Fatal("register response is missing the access token")
	}
	return resp.Token.AccessToken
}

func TestRegisterAndLogin(t *testing.T) {
	a := setupTestAPI(t)
	a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "acme@example.com",
		"password": "Sup3rSecret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		User        struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.AccessToken == "" || resp.TokenType != "Bearer" {
		t.Errorf("unexpected token response: %+v", resp)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expected expires_in 3600, got %d", resp.ExpiresIn)
	}
	if resp.User.Role != "admin" {
		t.Errorf("expected first user to be admin, got %q", resp.User.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	a := setupTestAPI(t)
	a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "acme@example.com",
		"password": "WrongPassw0rd",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	a := setupTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/pipelines", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodGet, "/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodPut, "/auth/me", token, map[string]string{
		"first_name": "Dana",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile returned %d: %s", rec.Code, rec.Body.String())
	}

	var profile struct {
		FirstName string `json:"first_name"`
	}
	decodeBody(t, rec, &profile)
	if profile.FirstName != "Dana" {
		t.Errorf("expected first name Dana, got %q", profile.FirstName)
	}
}

func TestPipelineCRUD(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/api/pipelines", token, map[string]interface{}{
		"name": "nightly-etl",
		"type": "etl",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pipeline returned %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, rec, &created)
	if created.ID == 0 {
		t.Fatal("created pipeline has no id")
	}

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/api/pipelines/%d", created.ID), token, map[string]string{
		"name": "nightly-etl-v2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update pipeline returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/api/pipelines?search=nightly", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list pipelines returned %d: %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Data       []struct{ Name string } `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	decodeBody(t, rec, &list)
	if list.Pagination.Total != 1 || len(list.Data) != 1 {
		t.Fatalf("expected one pipeline, got %+v", list)
	}
	if list.Data[0].Name != "nightly-etl-v2" {
		t.Errorf("expected renamed pipeline, got %q", list.Data[0].Name)
	}

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/api/pipelines/%d", created.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete pipeline returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/pipelines/%d", created.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCreatePipelineValidation(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/api/pipelines", token, map[string]string{
		"type": "etl",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidPathID(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodGet, "/api/pipelines/abc", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/api/pipelines", token, map[string]interface{}{
		"name": "orders-sync",
		"type": "airflow",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pipeline returned %d: %s", rec.Code, rec.Body.String())
	}
	var pipeline struct {
		ID uint `json:"id"`
	}
	decodeBody(t, rec, &pipeline)

	rec = a.do(t, http.MethodPost, "/api/alerts/rules", token, map[string]interface{}{
		"name":      "sync failures",
		"rule_type": "pipeline_failure",
		"severity":  "critical",
		"conditions": map[string]interface{}{
			"failure_count": 1,
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/pipelines/%d/runs", pipeline.ID), token, map[string]interface{}{
		"status":        "failed",
		"error_message": "upstream timeout",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record run returned %d: %s", rec.Code, rec.Body.String())
	}
	var runResp struct {
		AlertsFired int `json:"alerts_fired"`
	}
	decodeBody(t, rec, &runResp)
	if runResp.AlertsFired != 1 {
		t.Fatalf("expected one fired alert, got %d", runResp.AlertsFired)
	}

	rec = a.do(t, http.MethodGet, "/api/alerts?status=active", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list alerts returned %d: %s", rec.Code, rec.Body.String())
	}
	var alertList struct {
		Data []struct {
			ID       uint   `json:"id"`
			Severity string `json:"severity"`
			IsOpen   bool   `json:"is_open"`
		} `json:"data"`
	}
	decodeBody(t, rec, &alertList)
	if len(alertList.Data) != 1 {
		t.Fatalf("expected one active alert, got %d", len(alertList.Data))
	}
	alertID := alertList.Data[0].ID
	if alertList.Data[0].Severity != "critical" || !alertList.Data[0].IsOpen {
		t.Errorf("unexpected alert payload: %+v", alertList.Data[0])
	}

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/alerts/%d/acknowledge", alertID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("acknowledge returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", alertID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve returned %d: %s", rec.Code, rec.Body.String())
	}

	// Resolving twice conflicts with the lifecycle
	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", alertID), token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double resolve, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/alerts/%d/history", alertID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history returned %d: %s", rec.Code, rec.Body.String())
	}
	var history struct {
		Data []struct {
			Action string `json:"action"`
		} `json:"data"`
	}
	decodeBody(t, rec, &history)
	if len(history.Data) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history.Data))
	}
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	a := setupTestAPI(t)
	tokenA := a.register(t, "org-a")
	tokenB := a.register(t, "org-b")

	rec := a.do(t, http.MethodPost, "/api/pipelines", tokenA, map[string]interface{}{
		"name": "private-pipeline",
		"type": "etl",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pipeline returned %d: %s", rec.Code, rec.Body.String())
	}
	var pipeline struct {
		ID uint `json:"id"`
	}
	decodeBody(t, rec, &pipeline)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/pipelines/%d", pipeline.ID), tokenB, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign tenant, got %d", rec.Code)
	}
}

func TestDashboardOverviewOverHTTP(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodGet, "/api/dashboard/overview", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview returned %d: %s", rec.Code, rec.Body.String())
	}
	var overview struct {
		Pipelines struct {
			Total int64 `json:"total"`
		} `json:"pipelines"`
	}
	decodeBody(t, rec, &overview)
	if overview.Pipelines.Total != 0 {
		t.Errorf("expected empty overview, got %+v", overview)
	}
}

func TestDashboardSummariesOverHTTP(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	for _, path := range []string{
		"/api/dashboard/pipeline-health",
		"/api/dashboard/data-source-health",
		"/api/dashboard/metrics",
		"/api/dashboard/top-pipelines",
	} {
		rec := a.do(t, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s returned %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := a.do(t, http.MethodGet, "/api/dashboard/metrics?days=soon", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric days returned %d, want 400", rec.Code)
	}
}

func TestRefreshToken(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/auth/refresh", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, rec, &resp)
	if resp.AccessToken == "" {
		t.Fatal("refresh response is missing the access token")
	}

	// The refreshed token must be accepted
	rec = a.do(t, http.MethodGet, "/auth/me", resp.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refreshed token rejected: %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/auth/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListRoles(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	rec := a.do(t, http.MethodGet, "/api/users/roles", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list roles returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Data) != 4 {
		t.Fatalf("expected 4 built-in roles, got %d", len(resp.Data))
	}
}

func TestUserManagementRequiresElevatedRole(t *testing.T) {
	a := setupTestAPI(t)
	adminToken := a.register(t, "acme")

	rec := a.do(t, http.MethodPost, "/api/users", adminToken, map[string]string{
		"email":    "viewer@example.com",
		"username": "viewer1",
		"password": "Vis1tor-pass",
		"role":     "viewer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create user returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "viewer@example.com",
		"password": "Vis1tor-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("viewer login returned %d: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, rec, &login)

	rec = a.do(t, http.MethodPost, "/api/users", login.AccessToken, map[string]string{
		"email":    "other@example.com",
		"username": "other1",
		"password": "An0ther-pass",
		"role":     "viewer",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer creating users, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	a := setupTestAPI(t)

	rec := a.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
}

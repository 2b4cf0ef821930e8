package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func TestJSONB_ScanAndValue(t *testing.T) {
	var j JSONB
	if err := j.Scan([]byte(`{"status":"failed","failure_count":3}`)); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if j["status"] != "failed" {
		t.Errorf("expected status 'failed', got %v", j["status"])
	}

	if err := j.Scan(nil); err != nil {
		t.Fatalf("unexpected scan error for nil: %v", err)
	}
	if len(j) != 0 {
		t.Errorf("expected empty map after nil scan, got %v", j)
	}

	v, err := JSONB{"key": "value"}.Value()
	if err != nil {
		t.Fatalf("unexpected value error: %v", err)
	}
	if string(v.([]byte)) != `{"key":"value"}` {
		t.Errorf("unexpected serialized form: %s", v)
	}
}

func TestStringList_RoundTrip(t *testing.T) {
	db := setupTestDB(t)

	rule := AlertRule{
		Name:           "nightly-failures",
		RuleType:       RuleTypePipelineFailure,
		Severity:       SeverityCritical,
		Channels:       StringList{"email", "slack"},
		Recipients:     StringList{"oncall@example.com"},
		OrganizationID: 1,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	var loaded AlertRule
	if err := db.First(&loaded, rule.ID).Error; err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}
	if len(loaded.Channels) != 2 || loaded.Channels[0] != "email" {
		t.Errorf("channels did not round-trip: %v", loaded.Channels)
	}
	if loaded.UUID == "" {
		t.Error("expected BeforeCreate to assign a UUID")
	}
}

func TestSubscriptionTier_PipelineLimit(t *testing.T) {
	tests := []struct {
		tier  SubscriptionTier
		limit int
	}{
		{TierStarter, 10},
		{TierProfessional, 50},
		{TierEnterprise, -1},
	}
	for _, tt := range tests {
		if got := tt.tier.PipelineLimit(); got != tt.limit {
			t.Errorf("%s: expected limit %d, got %d", tt.tier, tt.limit, got)
		}
	}
}

func TestRole_HasPermission(t *testing.T) {
	admin := Role{Name: RoleAdmin, Permissions: StringList{"*"}}
	if !admin.HasPermission("pipelines:write") {
		t.Error("admin wildcard should grant everything")
	}

	viewer := Role{Name: RoleViewer, Permissions: StringList{"pipelines:read"}}
	if viewer.HasPermission("pipelines:write") {
		t.Error("viewer should not have write permission")
	}
	if !viewer.HasPermission("pipelines:read") {
		t.Error("viewer should have read permission")
	}
}

func TestSeedRoles_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := SeedRoles(db); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if err := SeedRoles(db); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var count int64
	db.Model(&Role{}).Count(&count)
	if count != 4 {
		t.Errorf("expected 4 roles, got %d", count)
	}

	role, err := GetRoleByName(db, RoleAnalyst)
	if err != nil {
		t.Fatalf("failed to load analyst role: %v", err)
	}
	if !role.HasPermission("alerts:write") {
		t.Error("analyst should be able to operate alerts")
	}
}

func TestEnumValidators(t *testing.T) {
	if !IsValidRunStatus("failed") || IsValidRunStatus("exploded") {
		t.Error("run status validation is wrong")
	}
	if !IsValidAlertSeverity("emergency") || IsValidAlertSeverity("fatal") {
		t.Error("severity validation is wrong")
	}
	if !IsValidAlertStatus("suppressed") || IsValidAlertStatus("open") {
		t.Error("alert status validation is wrong")
	}
	if !IsValidDataSourceType("snowflake") || IsValidDataSourceType("oracle") {
		t.Error("data source type validation is wrong")
	}
	if !IsValidHealthCheckType("connectivity") || IsValidHealthCheckType("latency") {
		t.Error("health check type validation is wrong")
	}
}

func TestRunStatus_IsTerminal(t *testing.T) {
	if RunStatusRunning.IsTerminal() || RunStatusPending.IsTerminal() {
		t.Error("pending/running are not terminal")
	}
	for _, s := range []RunStatus{RunStatusSuccess, RunStatusFailed, RunStatusCancelled, RunStatusTimeout} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestDataSource_ScrubbedConfig(t *testing.T) {
	ds := DataSource{ConnectionConfig: JSONB{
		"host":     "db.internal",
		"port":     float64(5432),
		"password": "hunter2",
	}}
	scrubbed := ds.ScrubbedConfig()
	if _, ok := scrubbed["password"]; ok {
		t.Error("password must not survive scrubbing")
	}
	if scrubbed["host"] != "db.internal" {
		t.Error("non-secret keys must survive scrubbing")
	}
}

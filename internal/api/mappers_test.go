package api

import (
	"testing"
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

func TestToUserResponse(t *testing.T) {
	u := database.User{
		ID:             7,
		Email:          "jordan@example.com",
		Username:       "jordan",
		FirstName:      "Jordan",
		LastName:       "Lee",
		OrganizationID: 3,
		IsActive:       true,
		Role:           database.Role{Name: database.RoleAnalyst},
	}

	resp := ToUserResponse(&u)

	if resp.FullName != "Jordan Lee" {
		t.Errorf("FullName = %q, want %q", resp.FullName, "Jordan Lee")
	}
	if resp.Role != "analyst" {
		t.Errorf("Role = %q, want %q", resp.Role, "analyst")
	}
	if resp.OrganizationID != 3 {
		t.Errorf("OrganizationID = %d, want 3", resp.OrganizationID)
	}
}

func TestToDataSourceResponse_ScrubsCredentials(t *testing.T) {
	ds := database.DataSource{
		ID:   1,
		Name: "warehouse",
		Type: database.DataSourceTypePostgreSQL,
		ConnectionConfig: database.JSONB{
			"host":     "db.internal",
			"password": "hunter2",
			"api_key":  "abc123",
		},
	}

	resp := ToDataSourceResponse(&ds)

	if _, ok := resp.ConnectionConfig["password"]; ok {
		t.Error("expected password to be scrubbed from connection config")
	}
	if _, ok := resp.ConnectionConfig["api_key"]; ok {
		t.Error("expected api_key to be scrubbed from connection config")
	}
	if resp.ConnectionConfig["host"] != "db.internal" {
		t.Errorf("host = %v, want db.internal", resp.ConnectionConfig["host"])
	}
}

func TestToAlertResponse_OpenAlert(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := created.Add(90 * time.Minute)
	a := database.Alert{
		ID:          5,
		AlertRuleID: 2,
		Title:       "Alert: nightly load failures",
		Severity:    database.SeverityCritical,
		Status:      database.AlertStatusActive,
		CreatedAt:   created,
	}

	resp := ToAlertResponse(&a, now)

	if !resp.IsOpen {
		t.Error("expected active alert to be open")
	}
	if resp.DurationMinutes != 90 {
		t.Errorf("DurationMinutes = %v, want 90", resp.DurationMinutes)
	}
	if resp.Severity != "critical" {
		t.Errorf("Severity = %q, want critical", resp.Severity)
	}
}

func TestToAlertResponse_ResolvedAlert(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resolved := created.Add(30 * time.Minute)
	now := created.Add(8 * time.Hour)
	a := database.Alert{
		ID:          6,
		AlertRuleID: 2,
		Status:      database.AlertStatusResolved,
		ResolvedAt:  &resolved,
		ResolvedBy:  "jordan",
		CreatedAt:   created,
	}

	resp := ToAlertResponse(&a, now)

	if resp.IsOpen {
		t.Error("expected resolved alert to be closed")
	}
	if resp.DurationMinutes != 30 {
		t.Errorf("DurationMinutes = %v, want 30 (up to resolution, not now)", resp.DurationMinutes)
	}
}

func TestToAlertResponses_Empty(t *testing.T) {
	items := ToAlertResponses([]database.Alert{}, time.Now())
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestToAlertRuleResponses(t *testing.T) {
	rules := []database.AlertRule{
		{ID: 1, Name: "rule-a", RuleType: database.RuleTypePipelineFailure, Severity: database.SeverityWarning},
		{ID: 2, Name: "rule-b", RuleType: database.RuleTypeHealthCheck, Severity: database.SeverityCritical},
	}

	items := ToAlertRuleResponses(rules)

	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[1].RuleType != "health_check" {
		t.Errorf("items[1].RuleType = %q, want health_check", items[1].RuleType)
	}
}

package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/database"
)

func TestCreatePipeline(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	svc := NewPipelineService(db, newTestEngine(db))

	p, err := svc.CreatePipeline(org.ID, 1, &api.CreatePipelineRequest{
		Name: "orders-etl",
		Type: "etl",
	})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if p.UUID == "" {
		t.Error("expected UUID to be assigned")
	}
	if p.Status != database.PipelineStatusActive {
		t.Errorf("Status = %q, want active", p.Status)
	}
	if p.TimeoutMinutes != 60 || p.FreshnessThresholdMinutes != 1440 {
		t.Errorf("defaults = timeout %d freshness %d, want 60/1440", p.TimeoutMinutes, p.FreshnessThresholdMinutes)
	}
}

func TestCreatePipeline_UnknownType(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	svc := NewPipelineService(db, newTestEngine(db))

	_, err := svc.CreatePipeline(org.ID, 1, &api.CreatePipelineRequest{Name: "x", Type: "spark"})
	var verr *alerts.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreatePipeline_PlanLimit(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	svc := NewPipelineService(db, newTestEngine(db))

	for i := 0; i < 10; i++ {
		_, err := svc.CreatePipeline(org.ID, 1, &api.CreatePipelineRequest{
			Name: fmt.Sprintf("pipeline-%d", i),
			Type: "etl",
		})
		if err != nil {
			t.Fatalf("pipeline %d: %v", i, err)
		}
	}

	_, err := svc.CreatePipeline(org.ID, 1, &api.CreatePipelineRequest{Name: "one-too-many", Type: "etl"})
	var verr *alerts.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError at starter plan limit, got %v", err)
	}
}

func TestCreatePipeline_DuplicateName(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierEnterprise)
	svc := NewPipelineService(db, newTestEngine(db))

	if _, err := svc.CreatePipeline(org.ID, 1, &api.CreatePipelineRequest{Name: "orders-etl", Type: "etl"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreatePipeline(org.ID, 1, &api.CreatePipelineRequest{Name: "orders-etl", Type: "dbt"})
	var verr *alerts.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for duplicate name, got %v", err)
	}
}

func TestGetPipeline_TenantScoped(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	if _, err := svc.GetPipeline(org.ID, p.ID); err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}

	_, err := svc.GetPipeline(org.ID+1, p.ID)
	var nferr *alerts.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError for foreign tenant, got %v", err)
	}
}

func TestListPipelines_Filters(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierEnterprise)
	svc := NewPipelineService(db, newTestEngine(db))

	for i, typ := range []string{"etl", "etl", "dbt"} {
		if _, err := svc.CreatePipeline(org.ID, 1, &api.CreatePipelineRequest{
			Name: fmt.Sprintf("pipeline-%d", i),
			Type: typ,
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	p := api.PaginationParams{Page: 1, PerPage: 50}
	items, total, err := svc.ListPipelines(org.ID, PipelineFilters{Type: "etl"}, p)
	if err != nil {
		t.Fatalf("ListPipelines: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("etl filter: total=%d len=%d, want 2/2", total, len(items))
	}

	items, total, err = svc.ListPipelines(org.ID, PipelineFilters{Search: "pipeline-2"}, p)
	if err != nil {
		t.Fatalf("ListPipelines search: %v", err)
	}
	if total != 1 || items[0].Name != "pipeline-2" {
		t.Errorf("search: total=%d, want 1 matching pipeline-2", total)
	}
}

func TestRecordRun_FiresFailureRule(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	rule := &database.AlertRule{
		Name:           "orders-etl failures",
		RuleType:       database.RuleTypePipelineFailure,
		Conditions:     database.JSONB{"status": "failed"},
		Severity:       database.SeverityCritical,
		IsActive:       true,
		OrganizationID: org.ID,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	run, fired, err := svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{
		Status:       "failed",
		ErrorMessage: "upstream timeout",
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run to be persisted")
	}
	if len(fired) != 1 {
		t.Fatalf("fired = %d alerts, want 1", len(fired))
	}
	if fired[0].Severity != database.SeverityCritical {
		t.Errorf("Severity = %q, want critical (copied from rule)", fired[0].Severity)
	}
	if fired[0].SourceType != "pipeline_run" {
		t.Errorf("SourceType = %q, want pipeline_run", fired[0].SourceType)
	}
}

func TestRecordRun_SuccessDoesNotFire(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	rule := &database.AlertRule{
		Name:           "orders-etl failures",
		RuleType:       database.RuleTypePipelineFailure,
		Conditions:     database.JSONB{"status": "failed"},
		IsActive:       true,
		OrganizationID: org.ID,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	_, fired, err := svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{Status: "success"})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if len(fired) != 0 {
		t.Errorf("fired = %d alerts, want 0", len(fired))
	}
}

func TestRecordRun_RuleScopedToOtherPipeline(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p1 := createTestPipeline(t, db, org.ID, "orders-etl")
	p2 := createTestPipeline(t, db, org.ID, "billing-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	rule := &database.AlertRule{
		Name:           "billing only",
		RuleType:       database.RuleTypePipelineFailure,
		Conditions:     database.JSONB{"status": "failed"},
		IsActive:       true,
		PipelineID:     &p2.ID,
		OrganizationID: org.ID,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	_, fired, err := svc.RecordRun(org.ID, p1.ID, &api.RecordRunRequest{Status: "failed"})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if len(fired) != 0 {
		t.Errorf("fired = %d alerts, want 0 for a rule scoped to another pipeline", len(fired))
	}
}

func TestRecordRun_ConsecutiveFailureThreshold(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	rule := &database.AlertRule{
		Name:            "three strikes",
		RuleType:        database.RuleTypePipelineFailure,
		Conditions:      database.JSONB{"status": "failed", "failure_count": 3},
		IsActive:        true,
		CooldownMinutes: 0,
		OrganizationID:  org.ID,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	for i := 1; i <= 2; i++ {
		_, fired, err := svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{Status: "failed"})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(fired) != 0 {
			t.Fatalf("run %d: fired %d alerts before threshold", i, len(fired))
		}
	}

	_, fired, err := svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{Status: "failed"})
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if len(fired) != 1 {
		t.Fatalf("third consecutive failure: fired %d alerts, want 1", len(fired))
	}

	// A success resets the streak
	if _, _, err := svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{Status: "success"}); err != nil {
		t.Fatalf("success run: %v", err)
	}
	_, fired, err = svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{Status: "failed"})
	if err != nil {
		t.Fatalf("post-success failure: %v", err)
	}
	if len(fired) != 0 {
		t.Errorf("post-success failure: fired %d alerts, want 0 after streak reset", len(fired))
	}
}

func TestRecordRun_DerivesDuration(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	started := mustParseTime(t, "2026-03-01T10:00:00Z")
	completed := mustParseTime(t, "2026-03-01T10:02:30Z")
	run, _, err := svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{
		Status:      "success",
		StartedAt:   &started,
		CompletedAt: &completed,
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if run.DurationSeconds != 150 {
		t.Errorf("DurationSeconds = %v, want 150", run.DurationSeconds)
	}
}

func TestTriggerRun(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	run, err := svc.TriggerRun(org.ID, p.ID, "manual")
	if err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	if run.Status != database.RunStatusPending {
		t.Errorf("Status = %q, want pending", run.Status)
	}
	if run.TriggeredBy != "manual" {
		t.Errorf("TriggeredBy = %q, want manual", run.TriggeredBy)
	}
}

func TestRecordMetric(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	m, err := svc.RecordMetric(org.ID, p.ID, &api.RecordMetricRequest{
		Name:  "rows_loaded",
		Value: 120000,
		Unit:  "rows",
	})
	if err != nil {
		t.Fatalf("RecordMetric: %v", err)
	}
	if m.RecordedAt.IsZero() {
		t.Error("expected RecordedAt to be stamped")
	}

	items, total, err := svc.ListMetrics(org.ID, p.ID, "rows_loaded", api.PaginationParams{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("ListMetrics: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("ListMetrics total=%d len=%d, want 1/1", total, len(items))
	}
}

func TestDeletePipeline_RemovesRuns(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, database.TierStarter)
	p := createTestPipeline(t, db, org.ID, "orders-etl")
	svc := NewPipelineService(db, newTestEngine(db))

	if _, _, err := svc.RecordRun(org.ID, p.ID, &api.RecordRunRequest{Status: "success"}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := svc.DeletePipeline(org.ID, p.ID); err != nil {
		t.Fatalf("DeletePipeline: %v", err)
	}

	var count int64
	if err := db.Model(&database.PipelineRun{}).Where("pipeline_id = ?", p.ID).Count(&count).Error; err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if count != 0 {
		t.Errorf("runs remaining = %d, want 0", count)
	}
}

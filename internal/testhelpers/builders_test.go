package testhelpers

import (
	"testing"
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

func TestOrganizationBuilder(t *testing.T) {
	db := OpenTestDB(t)

	org := NewOrganizationBuilder().
		WithName("Metrics Inc").
		WithSlug("metrics-inc").
		WithTier(database.TierEnterprise).
		Create(t, db)

	if org.ID == 0 {
		t.Fatal("expected persisted organization to have an id")
	}
	if org.SubscriptionTier != database.TierEnterprise {
		t.Errorf("expected enterprise tier, got %q", org.SubscriptionTier)
	}
}

func TestUserBuilderResolvesRole(t *testing.T) {
	db := OpenTestDB(t)
	org := NewOrganizationBuilder().Create(t, db)

	user := NewUserBuilder(org.ID).
		WithEmail("analyst@example.com").
		WithUsername("analyst").
		WithRole(database.RoleAnalyst).
		Create(t, db)

	if user.Role.Name != database.RoleAnalyst {
		t.Errorf("expected analyst role, got %q", user.Role.Name)
	}
	if user.OrganizationID != org.ID {
		t.Errorf("expected user in org %d, got %d", org.ID, user.OrganizationID)
	}
}

func TestPipelineBuilder(t *testing.T) {
	db := OpenTestDB(t)
	org := NewOrganizationBuilder().Create(t, db)

	p := NewPipelineBuilder(org.ID).
		WithName("orders-sync").
		WithType(database.PipelineTypeAirflow).
		WithStatus(database.PipelineStatusMaintenance).
		Create(t, db)

	if p.Type != database.PipelineTypeAirflow || p.Status != database.PipelineStatusMaintenance {
		t.Errorf("unexpected pipeline: %+v", p)
	}
}

func TestAlertRuleBuilderDefaults(t *testing.T) {
	db := OpenTestDB(t)
	org := NewOrganizationBuilder().Create(t, db)

	rule := NewAlertRuleBuilder(org.ID).Create(t, db)

	if rule.UUID == "" {
		t.Error("expected a generated uuid")
	}
	if rule.RuleType != database.RuleTypePipelineFailure {
		t.Errorf("expected pipeline_failure default, got %q", rule.RuleType)
	}
}

func TestAlertBuilderBackdating(t *testing.T) {
	db := OpenTestDB(t)
	org := NewOrganizationBuilder().Create(t, db)
	rule := NewAlertRuleBuilder(org.ID).WithEscalation(30, "oncall@example.com").Create(t, db)

	past := time.Now().Add(-90 * time.Minute)
	alert := NewAlertBuilder(org.ID, rule.ID).
		WithSeverity(database.SeverityCritical).
		WithCreatedAt(past).
		Create(t, db)

	var loaded database.Alert
	if err := db.First(&loaded, alert.ID).Error; err != nil {
		t.Fatalf("failed to reload alert: %v", err)
	}
	if loaded.CreatedAt.After(past.Add(time.Second)) {
		t.Errorf("expected backdated created_at, got %v", loaded.CreatedAt)
	}
}

package testhelpers

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/database"
)

// ========================================
// Organization Builder
// ========================================

// OrganizationBuilder builds test organizations
type OrganizationBuilder struct {
	org database.Organization
}

// NewOrganizationBuilder creates a builder with sensible defaults
func NewOrganizationBuilder() *OrganizationBuilder {
	return &OrganizationBuilder{
		org: database.Organization{
			Name:             "Test Org",
			Slug:             "test-org",
			SubscriptionTier: database.TierStarter,
			IsActive:         true,
		},
	}
}

// WithName sets the organization name
func (b *OrganizationBuilder) WithName(name string) *OrganizationBuilder {
	b.org.Name = name
	return b
}

// WithSlug sets the organization slug
func (b *OrganizationBuilder) WithSlug(slug string) *OrganizationBuilder {
	b.org.Slug = slug
	return b
}

// WithTier sets the subscription tier
func (b *OrganizationBuilder) WithTier(tier database.SubscriptionTier) *OrganizationBuilder {
	b.org.SubscriptionTier = tier
	return b
}

// Build returns the organization without persisting it
func (b *OrganizationBuilder) Build() database.Organization {
	return b.org
}

// Create persists the organization
func (b *OrganizationBuilder) Create(t *testing.T, db *gorm.DB) *database.Organization {
	t.Helper()
	org := b.org
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}
	return &org
}

// ========================================
// User Builder
// ========================================

// UserBuilder builds test users
type UserBuilder struct {
	user     database.User
	roleName database.RoleName
}

// NewUserBuilder creates a builder with sensible defaults
func NewUserBuilder(orgID uint) *UserBuilder {
	return &UserBuilder{
		user: database.User{
			Email:          "user@example.com",
			Username:       "testuser",
			PasswordHash:   "x",
			IsActive:       true,
			OrganizationID: orgID,
		},
		roleName: database.RoleViewer,
	}
}

// WithEmail sets email and username together
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

// WithUsername sets the username
func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.user.Username = username
	return b
}

// WithRole sets the role by name
func (b *UserBuilder) WithRole(role database.RoleName) *UserBuilder {
	b.roleName = role
	return b
}

// Create persists the user with its role resolved
func (b *UserBuilder) Create(t *testing.T, db *gorm.DB) *database.User {
	t.Helper()
	role, err := database.GetRoleByName(db, b.roleName)
	if err != nil {
		t.Fatalf("failed to resolve role %q: %v", b.roleName, err)
	}
	user := b.user
	user.RoleID = role.ID
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	user.Role = *role
	return &user
}

// ========================================
// Pipeline Builder
// ========================================

// PipelineBuilder builds test pipelines
type PipelineBuilder struct {
	pipeline database.Pipeline
}

// NewPipelineBuilder creates a builder with sensible defaults
func NewPipelineBuilder(orgID uint) *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: database.Pipeline{
			Name:           "test-pipeline",
			Type:           database.PipelineTypeETL,
			Status:         database.PipelineStatusActive,
			OrganizationID: orgID,
		},
	}
}

// WithName sets the pipeline name
func (b *PipelineBuilder) WithName(name string) *PipelineBuilder {
	b.pipeline.Name = name
	return b
}

// WithType sets the pipeline type
func (b *PipelineBuilder) WithType(pt database.PipelineType) *PipelineBuilder {
	b.pipeline.Type = pt
	return b
}

// WithStatus sets the pipeline status
func (b *PipelineBuilder) WithStatus(status database.PipelineStatus) *PipelineBuilder {
	b.pipeline.Status = status
	return b
}

// Create persists the pipeline
func (b *PipelineBuilder) Create(t *testing.T, db *gorm.DB) *database.Pipeline {
	t.Helper()
	p := b.pipeline
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return &p
}

// ========================================
// Alert Rule Builder
// ========================================

// AlertRuleBuilder builds test alert rules
type AlertRuleBuilder struct {
	rule database.AlertRule
}

// NewAlertRuleBuilder creates a builder with sensible defaults
func NewAlertRuleBuilder(orgID uint) *AlertRuleBuilder {
	return &AlertRuleBuilder{
		rule: database.AlertRule{
			Name:            "test rule",
			RuleType:        database.RuleTypePipelineFailure,
			Conditions:      database.JSONB{"failure_count": float64(1)},
			Severity:        database.SeverityWarning,
			IsActive:        true,
			CooldownMinutes: 0,
			OrganizationID:  orgID,
		},
	}
}

// WithName sets the rule name
func (b *AlertRuleBuilder) WithName(name string) *AlertRuleBuilder {
	b.rule.Name = name
	return b
}

// WithRuleType sets the rule type
func (b *AlertRuleBuilder) WithRuleType(rt database.AlertRuleType) *AlertRuleBuilder {
	b.rule.RuleType = rt
	return b
}

// WithConditions replaces the condition document
func (b *AlertRuleBuilder) WithConditions(conditions database.JSONB) *AlertRuleBuilder {
	b.rule.Conditions = conditions
	return b
}

// WithSeverity sets the rule severity
func (b *AlertRuleBuilder) WithSeverity(severity database.AlertSeverity) *AlertRuleBuilder {
	b.rule.Severity = severity
	return b
}

// WithCooldown sets the cooldown in minutes
func (b *AlertRuleBuilder) WithCooldown(minutes int) *AlertRuleBuilder {
	b.rule.CooldownMinutes = minutes
	return b
}

// WithEscalation enables escalation with the given delay
func (b *AlertRuleBuilder) WithEscalation(delayMinutes int, recipients ...string) *AlertRuleBuilder {
	b.rule.EscalationEnabled = true
	b.rule.EscalationDelayMinutes = delayMinutes
	b.rule.EscalationRecipients = recipients
	return b
}

// Create persists the rule
func (b *AlertRuleBuilder) Create(t *testing.T, db *gorm.DB) *database.AlertRule {
	t.Helper()
	rule := b.rule
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("failed to create alert rule: %v", err)
	}
	return &rule
}

// ========================================
// Alert Builder
// ========================================

// AlertBuilder builds fired alerts directly, bypassing the engine
type AlertBuilder struct {
	alert database.Alert
}

// NewAlertBuilder creates a builder with sensible defaults
func NewAlertBuilder(orgID, ruleID uint) *AlertBuilder {
	return &AlertBuilder{
		alert: database.Alert{
			AlertRuleID:    ruleID,
			Title:          "Alert: test rule",
			Severity:       database.SeverityWarning,
			Status:         database.AlertStatusActive,
			OrganizationID: orgID,
		},
	}
}

// WithStatus sets the alert status
func (b *AlertBuilder) WithStatus(status database.AlertStatus) *AlertBuilder {
	b.alert.Status = status
	return b
}

// WithSeverity sets the alert severity
func (b *AlertBuilder) WithSeverity(severity database.AlertSeverity) *AlertBuilder {
	b.alert.Severity = severity
	return b
}

// WithCreatedAt backdates the alert
func (b *AlertBuilder) WithCreatedAt(ts time.Time) *AlertBuilder {
	b.alert.CreatedAt = ts
	return b
}

// Create persists the alert
func (b *AlertBuilder) Create(t *testing.T, db *gorm.DB) *database.Alert {
	t.Helper()
	alert := b.alert
	if err := db.Create(&alert).Error; err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}
	return &alert
}

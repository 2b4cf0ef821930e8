package services

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func createTestOrg(t *testing.T, db *gorm.DB, tier database.SubscriptionTier) *database.Organization {
	t.Helper()
	org := &database.Organization{
		Name:             "Acme Data",
		Slug:             "acme-data",
		SubscriptionTier: tier,
		IsActive:         true,
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

func createTestPipeline(t *testing.T, db *gorm.DB, orgID uint, name string) *database.Pipeline {
	t.Helper()
	p := &database.Pipeline{
		Name:           name,
		Type:           database.PipelineTypeETL,
		Status:         database.PipelineStatusActive,
		OrganizationID: orgID,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to create test pipeline: %v", err)
	}
	return p
}

func newTestEngine(db *gorm.DB) *alerts.Engine {
	return alerts.NewEngine(db)
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("failed to parse time %q: %v", value, err)
	}
	return ts
}

func strPtr(s string) *string     { return &s }
func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(AllModels()...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// AllModels returns every persisted model in migration order.
// Shared with test setup so in-memory databases match production schema.
func AllModels() []interface{} {
	return []interface{}{
		&Organization{},
		&OrganizationSettings{},
		&Role{},
		&User{},
		&DataSource{},
		&HealthCheck{},
		&HealthCheckResult{},
		&Pipeline{},
		&PipelineRun{},
		&PipelineMetric{},
		&AlertRule{},
		&Alert{},
		&AlertHistory{},
	}
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults() error {
	log.Println("Initializing default database records...")

	if err := SeedRoles(DB); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	return nil
}

// defaultRoles are the built-in roles created on first startup
var defaultRoles = []Role{
	{
		Name:        RoleAdmin,
		Description: "Full access to all resources",
		Permissions: StringList{"*"},
	},
	{
		Name:        RoleManager,
		Description: "Manage pipelines, monitoring and alerts",
		Permissions: StringList{
			"pipelines:read", "pipelines:write",
			"monitoring:read", "monitoring:write",
			"alerts:read", "alerts:write",
			"users:read",
		},
	},
	{
		Name:        RoleAnalyst,
		Description: "Operate alerts and view monitoring data",
		Permissions: StringList{
			"pipelines:read",
			"monitoring:read",
			"alerts:read", "alerts:write",
		},
	},
	{
		Name:        RoleViewer,
		Description: "Read-only access",
		Permissions: StringList{
			"pipelines:read",
			"monitoring:read",
			"alerts:read",
		},
	},
}

// SeedRoles creates the built-in roles when missing. Accepts a db parameter
// so tests can seed their own in-memory databases.
func SeedRoles(db *gorm.DB) error {
	for _, role := range defaultRoles {
		var existing Role
		err := db.Where("name = ?", role.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		r := role
		if err := db.Create(&r).Error; err != nil {
			return fmt.Errorf("failed to create role %s: %w", role.Name, err)
		}
		log.Printf("Created default role: %s", role.Name)
	}
	return nil
}

// GetRoleByName returns the role with the given name
func GetRoleByName(db *gorm.DB, name RoleName) (*Role, error) {
	var role Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

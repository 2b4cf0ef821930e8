package database

import (
	"time"

	"gorm.io/gorm"
)

// DataSourceType represents the kind of system a data source points at
type DataSourceType string

const (
	DataSourceTypePostgreSQL DataSourceType = "postgresql"
	DataSourceTypeMySQL      DataSourceType = "mysql"
	DataSourceTypeSQLServer  DataSourceType = "sqlserver"
	DataSourceTypeSnowflake  DataSourceType = "snowflake"
	DataSourceTypeBigQuery   DataSourceType = "bigquery"
	DataSourceTypeRedshift   DataSourceType = "redshift"
	DataSourceTypeAPI        DataSourceType = "api"
	DataSourceTypeFile       DataSourceType = "file"
	DataSourceTypeCustom     DataSourceType = "custom"
)

// IsValidDataSourceType checks whether s is a known data source type tag
func IsValidDataSourceType(s string) bool {
	switch DataSourceType(s) {
	case DataSourceTypePostgreSQL, DataSourceTypeMySQL, DataSourceTypeSQLServer,
		DataSourceTypeSnowflake, DataSourceTypeBigQuery, DataSourceTypeRedshift,
		DataSourceTypeAPI, DataSourceTypeFile, DataSourceTypeCustom:
		return true
	}
	return false
}

// HealthCheckType represents what a health check measures
type HealthCheckType string

const (
	HealthCheckTypeFreshness    HealthCheckType = "freshness"
	HealthCheckTypeVolume       HealthCheckType = "volume"
	HealthCheckTypeQuality      HealthCheckType = "quality"
	HealthCheckTypeConnectivity HealthCheckType = "connectivity"
	HealthCheckTypeCustom       HealthCheckType = "custom"
)

// IsValidHealthCheckType checks whether s is a known health check type tag
func IsValidHealthCheckType(s string) bool {
	switch HealthCheckType(s) {
	case HealthCheckTypeFreshness, HealthCheckTypeVolume, HealthCheckTypeQuality,
		HealthCheckTypeConnectivity, HealthCheckTypeCustom:
		return true
	}
	return false
}

// HealthCheckStatus represents the outcome of a health check execution
type HealthCheckStatus string

const (
	HealthStatusHealthy  HealthCheckStatus = "healthy"
	HealthStatusWarning  HealthCheckStatus = "warning"
	HealthStatusCritical HealthCheckStatus = "critical"
	HealthStatusUnknown  HealthCheckStatus = "unknown"
)

// IsValidHealthCheckStatus checks whether s is a known health status tag
func IsValidHealthCheckStatus(s string) bool {
	switch HealthCheckStatus(s) {
	case HealthStatusHealthy, HealthStatusWarning, HealthStatusCritical, HealthStatusUnknown:
		return true
	}
	return false
}

// DataSource is an external system PipeWatch monitors. Connection details
// live in ConnectionConfig; the password key is scrubbed before serving.
type DataSource struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"size:255;not null;uniqueIndex:idx_data_sources_org_name" json:"name"`
	Description      string         `gorm:"type:text" json:"description"`
	Type             DataSourceType `gorm:"type:varchar(50);not null;index" json:"type"`
	ConnectionConfig JSONB          `gorm:"type:jsonb" json:"connection_config"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`

	CheckIntervalSeconds int        `gorm:"default:300" json:"check_interval_seconds"`
	TimeoutSeconds       int        `gorm:"default:30" json:"timeout_seconds"`
	Tags                 StringList `gorm:"type:text" json:"tags"`

	OrganizationID uint      `gorm:"not null;uniqueIndex:idx_data_sources_org_name" json:"organization_id"`
	CreatedByID    uint      `json:"created_by_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relationships
	HealthChecks []HealthCheck `gorm:"foreignKey:DataSourceID" json:"health_checks,omitempty"`
}

func (DataSource) TableName() string {
	return "data_sources"
}

// ScrubbedConfig returns a copy of the connection config with secret keys removed
func (d *DataSource) ScrubbedConfig() JSONB {
	if d.ConnectionConfig == nil {
		return nil
	}
	out := make(JSONB, len(d.ConnectionConfig))
	for k, v := range d.ConnectionConfig {
		if k == "password" || k == "secret" || k == "api_key" {
			continue
		}
		out[k] = v
	}
	return out
}

// HealthCheck is a recurring probe against a data source
type HealthCheck struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Type        HealthCheckType `gorm:"type:varchar(50);not null;index" json:"type"`
	Config      JSONB           `gorm:"type:jsonb" json:"config"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`

	// Threshold semantics depend on the check type: freshness compares age in
	// minutes, volume compares row counts, quality compares a 0-100 score.
	WarningThreshold  *float64 `json:"warning_threshold,omitempty"`
	CriticalThreshold *float64 `json:"critical_threshold,omitempty"`

	AlertOnWarning  bool `gorm:"default:false" json:"alert_on_warning"`
	// No column default: tenants may opt out of critical alerts, and a
	// column default would overwrite the explicit false on create.
	AlertOnCritical bool `json:"alert_on_critical"`

	DataSourceID   uint      `gorm:"not null;index" json:"data_source_id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	CreatedByID    uint      `json:"created_by_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relationships
	DataSource DataSource          `gorm:"foreignKey:DataSourceID" json:"data_source,omitempty"`
	Results    []HealthCheckResult `gorm:"foreignKey:HealthCheckID" json:"results,omitempty"`
}

func (HealthCheck) TableName() string {
	return "health_checks"
}

// HealthCheckResult is one execution outcome of a health check
type HealthCheckResult struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	HealthCheckID uint              `gorm:"not null;index:idx_results_check_checked" json:"health_check_id"`
	Status        HealthCheckStatus `gorm:"type:varchar(50);not null;index" json:"status"`
	CheckedAt     time.Time         `gorm:"index:idx_results_check_checked" json:"checked_at"`
	DurationMs    int64             `json:"duration_ms"`

	MetricValue *float64 `json:"metric_value,omitempty"`
	MetricUnit  string   `gorm:"size:32" json:"metric_unit"`

	Message      string `gorm:"type:text" json:"message"`
	Details      JSONB  `gorm:"type:jsonb" json:"details"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	CreatedAt time.Time `json:"created_at"`
}

func (HealthCheckResult) TableName() string {
	return "health_check_results"
}

// BeforeCreate hook stamps CheckedAt when unset
func (r *HealthCheckResult) BeforeCreate(tx *gorm.DB) error {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now()
	}
	return nil
}

// IsBreaching reports whether the result should be considered alertable
// for the given health check configuration.
func (r *HealthCheckResult) IsBreaching(check *HealthCheck) bool {
	switch r.Status {
	case HealthStatusCritical:
		return check.AlertOnCritical
	case HealthStatusWarning:
		return check.AlertOnWarning
	}
	return false
}

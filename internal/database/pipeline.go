package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PipelineType represents the kind of job a pipeline describes
type PipelineType string

const (
	PipelineTypeETL      PipelineType = "etl"
	PipelineTypeELT      PipelineType = "elt"
	PipelineTypeAPI      PipelineType = "api"
	PipelineTypeDatabase PipelineType = "database"
	PipelineTypeCron     PipelineType = "cron"
	PipelineTypeAirflow  PipelineType = "airflow"
	PipelineTypeDBT      PipelineType = "dbt"
	PipelineTypeCustom   PipelineType = "custom"
)

// IsValidPipelineType checks whether s is a known pipeline type tag
func IsValidPipelineType(s string) bool {
	switch PipelineType(s) {
	case PipelineTypeETL, PipelineTypeELT, PipelineTypeAPI, PipelineTypeDatabase,
		PipelineTypeCron, PipelineTypeAirflow, PipelineTypeDBT, PipelineTypeCustom:
		return true
	}
	return false
}

// PipelineStatus represents the lifecycle state of a pipeline descriptor
type PipelineStatus string

const (
	PipelineStatusActive      PipelineStatus = "active"
	PipelineStatusInactive    PipelineStatus = "inactive"
	PipelineStatusMaintenance PipelineStatus = "maintenance"
	PipelineStatusDeprecated  PipelineStatus = "deprecated"
)

// IsValidPipelineStatus checks whether s is a known pipeline status tag
func IsValidPipelineStatus(s string) bool {
	switch PipelineStatus(s) {
	case PipelineStatusActive, PipelineStatusInactive, PipelineStatusMaintenance, PipelineStatusDeprecated:
		return true
	}
	return false
}

// RunStatus represents the outcome of a single pipeline execution
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSuccess   RunStatus = "success"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusTimeout   RunStatus = "timeout"
)

// IsValidRunStatus checks whether s is a known run status tag
func IsValidRunStatus(s string) bool {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusSuccess,
		RunStatusFailed, RunStatusCancelled, RunStatusTimeout:
		return true
	}
	return false
}

// IsTerminal reports whether the run reached a final state
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusFailed, RunStatusCancelled, RunStatusTimeout:
		return true
	}
	return false
}

// Pipeline is a monitored data pipeline descriptor. Runs are pushed by
// external schedulers; PipeWatch evaluates alert rules against them.
type Pipeline struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        string         `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Name        string         `gorm:"size:255;not null;uniqueIndex:idx_pipelines_org_name" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Type        PipelineType   `gorm:"type:varchar(50);not null;index" json:"type"`
	Status      PipelineStatus `gorm:"type:varchar(50);not null;default:'active';index" json:"status"`
	Config      JSONB          `gorm:"type:jsonb" json:"config"`
	Schedule    string         `gorm:"size:128" json:"schedule"` // cron expression, informational
	Tags        StringList     `gorm:"type:text" json:"tags"`

	// Execution settings
	TimeoutMinutes int `gorm:"default:60" json:"timeout_minutes"`
	MaxRetries     int `gorm:"default:0" json:"max_retries"`

	// Health thresholds
	FreshnessThresholdMinutes int   `gorm:"default:1440" json:"freshness_threshold_minutes"`
	ExpectedRecordsMin        int64 `gorm:"default:0" json:"expected_records_min"`

	OrganizationID uint  `gorm:"not null;uniqueIndex:idx_pipelines_org_name" json:"organization_id"`
	DataSourceID   *uint `gorm:"index" json:"data_source_id,omitempty"`
	CreatedByID    uint  `json:"created_by_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relationships
	Runs       []PipelineRun `gorm:"foreignKey:PipelineID" json:"runs,omitempty"`
	DataSource *DataSource   `gorm:"foreignKey:DataSourceID" json:"data_source,omitempty"`
}

func (Pipeline) TableName() string {
	return "pipelines"
}

// BeforeCreate hook assigns a UUID when none is set
func (p *Pipeline) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	return nil
}

// PipelineRun is one execution of a pipeline, recorded by the scheduler
type PipelineRun struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        string    `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	PipelineID  uint      `gorm:"not null;index:idx_runs_pipeline_started" json:"pipeline_id"`
	Status      RunStatus `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	TriggeredBy string    `gorm:"size:128" json:"triggered_by"` // "schedule", "manual", "api"

	StartedAt       *time.Time `gorm:"index:idx_runs_pipeline_started" json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`

	RecordsProcessed int64 `json:"records_processed"`
	RecordsFailed    int64 `json:"records_failed"`
	DataVolumeBytes  int64 `json:"data_volume_bytes"`

	ErrorMessage string `gorm:"type:text" json:"error_message"`
	ErrorDetails JSONB  `gorm:"type:jsonb" json:"error_details"`
	RunMetadata  JSONB  `gorm:"type:jsonb" json:"run_metadata"`

	// Retry lineage
	RetryOfRunID *uint `gorm:"index" json:"retry_of_run_id,omitempty"`
	RetryCount   int   `gorm:"default:0" json:"retry_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// BeforeCreate hook assigns a UUID when none is set
func (r *PipelineRun) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	return nil
}

// PipelineMetric is a named measurement attached to a run
type PipelineMetric struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PipelineID    uint      `gorm:"not null;index" json:"pipeline_id"`
	PipelineRunID *uint     `gorm:"index" json:"pipeline_run_id,omitempty"`
	Name          string    `gorm:"size:128;not null;index" json:"name"`
	Value         float64   `json:"value"`
	Unit          string    `gorm:"size:32" json:"unit"`
	RecordedAt    time.Time `gorm:"index" json:"recorded_at"`
	Metadata      JSONB     `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
}

func (PipelineMetric) TableName() string {
	return "pipeline_metrics"
}

// BeforeCreate hook stamps RecordedAt when unset
func (m *PipelineMetric) BeforeCreate(tx *gorm.DB) error {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now()
	}
	return nil
}

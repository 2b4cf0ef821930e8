package api

import (
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

// ========== Auth Types ==========

// RegisterRequest is the request body for POST /auth/register.
// Registration creates the organization, its settings and the first admin
// user in one transaction.
type RegisterRequest struct {
	OrganizationName string `json:"organization_name" validate:"required,min=2,max=255"`
	OrganizationSlug string `json:"organization_slug" validate:"required,min=2,max=128"`
	Email            string `json:"email" validate:"required,email"`
	Username         string `json:"username" validate:"required,min=3,max=128"`
	Password         string `json:"password" validate:"required,min=8"`
	FirstName        string `json:"first_name" validate:"omitempty,max=128"`
	LastName         string `json:"last_name" validate:"omitempty,max=128"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int           `json:"expires_in"`
	User        *UserResponse `json:"user,omitempty"`
}

// UpdateProfileRequest is the request body for PUT /auth/me.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=128"`
	LastName  *string `json:"last_name" validate:"omitempty,max=128"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
}

// ========== User Types ==========

// CreateUserRequest is the request body for POST /api/users.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=128"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"omitempty,max=128"`
	LastName  string `json:"last_name" validate:"omitempty,max=128"`
	Role      string `json:"role" validate:"required"`
}

// UpdateUserRequest is the request body for PUT /api/users/{id}.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=128"`
	LastName  *string `json:"last_name" validate:"omitempty,max=128"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
}

// ========== Pipeline Types ==========

// CreatePipelineRequest is the request body for POST /api/pipelines.
type CreatePipelineRequest struct {
	Name        string         `json:"name" validate:"required,min=1,max=255"`
	Description string         `json:"description" validate:"omitempty,max=4096"`
	Type        string         `json:"type" validate:"required"`
	Config      database.JSONB `json:"config"`
	Schedule    string         `json:"schedule" validate:"omitempty,max=128"`
	Tags        []string       `json:"tags"`

	TimeoutMinutes            int   `json:"timeout_minutes" validate:"omitempty,min=1"`
	MaxRetries                int   `json:"max_retries" validate:"omitempty,min=0"`
	FreshnessThresholdMinutes int   `json:"freshness_threshold_minutes" validate:"omitempty,min=1"`
	ExpectedRecordsMin        int64 `json:"expected_records_min" validate:"omitempty,min=0"`
	DataSourceID              *uint `json:"data_source_id"`
}

// UpdatePipelineRequest is the request body for PUT /api/pipelines/{id}.
type UpdatePipelineRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Config      *database.JSONB `json:"config"`
	Schedule    *string         `json:"schedule"`
	Tags        *[]string       `json:"tags"`

	TimeoutMinutes            *int   `json:"timeout_minutes"`
	MaxRetries                *int   `json:"max_retries"`
	FreshnessThresholdMinutes *int   `json:"freshness_threshold_minutes"`
	ExpectedRecordsMin        *int64 `json:"expected_records_min"`
	DataSourceID              *uint  `json:"data_source_id"`
}

// RecordRunRequest is the request body for POST /api/pipelines/{id}/runs.
// External schedulers push run outcomes through this endpoint.
type RecordRunRequest struct {
	Status           string         `json:"status" validate:"required"`
	TriggeredBy      string         `json:"triggered_by" validate:"omitempty,max=128"`
	StartedAt        *time.Time     `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at"`
	DurationSeconds  float64        `json:"duration_seconds" validate:"omitempty,min=0"`
	RecordsProcessed int64          `json:"records_processed" validate:"omitempty,min=0"`
	RecordsFailed    int64          `json:"records_failed" validate:"omitempty,min=0"`
	DataVolumeBytes  int64          `json:"data_volume_bytes" validate:"omitempty,min=0"`
	ErrorMessage     string         `json:"error_message"`
	ErrorDetails     database.JSONB `json:"error_details"`
	RunMetadata      database.JSONB `json:"run_metadata"`
	RetryOfRunID     *uint          `json:"retry_of_run_id"`
}

// RecordMetricRequest is the request body for POST /api/pipelines/{id}/metrics.
type RecordMetricRequest struct {
	Name          string         `json:"name" validate:"required,min=1,max=128"`
	Value         float64        `json:"value"`
	Unit          string         `json:"unit" validate:"omitempty,max=32"`
	PipelineRunID *uint          `json:"pipeline_run_id"`
	RecordedAt    *time.Time     `json:"recorded_at"`
	Metadata      database.JSONB `json:"metadata"`
}

// ========== Monitoring Types ==========

// CreateDataSourceRequest is the request body for POST /api/monitoring/data-sources.
type CreateDataSourceRequest struct {
	Name             string         `json:"name" validate:"required,min=1,max=255"`
	Description      string         `json:"description"`
	Type             string         `json:"type" validate:"required"`
	ConnectionConfig database.JSONB `json:"connection_config"`

	CheckIntervalSeconds int      `json:"check_interval_seconds" validate:"omitempty,min=10"`
	TimeoutSeconds       int      `json:"timeout_seconds" validate:"omitempty,min=1,max=300"`
	Tags                 []string `json:"tags"`
}

// UpdateDataSourceRequest is the request body for PUT /api/monitoring/data-sources/{id}.
type UpdateDataSourceRequest struct {
	Name             *string         `json:"name" validate:"omitempty,min=1,max=255"`
	Description      *string         `json:"description"`
	ConnectionConfig *database.JSONB `json:"connection_config"`
	IsActive         *bool           `json:"is_active"`

	CheckIntervalSeconds *int      `json:"check_interval_seconds"`
	TimeoutSeconds       *int      `json:"timeout_seconds"`
	Tags                 *[]string `json:"tags"`
}

// CreateHealthCheckRequest is the request body for POST /api/monitoring/health-checks.
type CreateHealthCheckRequest struct {
	Name         string         `json:"name" validate:"required,min=1,max=255"`
	Description  string         `json:"description"`
	Type         string         `json:"type" validate:"required"`
	Config       database.JSONB `json:"config"`
	DataSourceID uint           `json:"data_source_id" validate:"required"`

	WarningThreshold  *float64 `json:"warning_threshold"`
	CriticalThreshold *float64 `json:"critical_threshold"`
	AlertOnWarning    bool     `json:"alert_on_warning"`
	AlertOnCritical   *bool    `json:"alert_on_critical"`
}

// UpdateHealthCheckRequest is the request body for PUT /api/monitoring/health-checks/{id}.
type UpdateHealthCheckRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description"`
	Config      *database.JSONB `json:"config"`
	IsActive    *bool           `json:"is_active"`

	WarningThreshold  *float64 `json:"warning_threshold"`
	CriticalThreshold *float64 `json:"critical_threshold"`
	AlertOnWarning    *bool    `json:"alert_on_warning"`
	AlertOnCritical   *bool    `json:"alert_on_critical"`
}

// RunHealthCheckRequest is the request body for POST /api/monitoring/health-checks/{id}/run.
// Connectivity checks probe the data source directly; other check types
// evaluate the supplied metric value against the configured thresholds.
type RunHealthCheckRequest struct {
	MetricValue *float64 `json:"metric_value"`
	MetricUnit  string   `json:"metric_unit" validate:"omitempty,max=32"`
}

// ========== Alert Types ==========

// CreateAlertRuleRequest is the request body for POST /api/alerts/rules.
type CreateAlertRuleRequest struct {
	Name        string         `json:"name" validate:"required,min=1,max=255"`
	Description string         `json:"description"`
	RuleType    string         `json:"rule_type" validate:"required"`
	Conditions  database.JSONB `json:"conditions"`
	Severity    string         `json:"severity" validate:"omitempty"`

	Channels   []string `json:"channels"`
	Recipients []string `json:"recipients"`

	CooldownMinutes *int `json:"cooldown_minutes" validate:"omitempty,min=0"`

	EscalationEnabled      bool     `json:"escalation_enabled"`
	EscalationDelayMinutes int      `json:"escalation_delay_minutes" validate:"omitempty,min=1"`
	EscalationRecipients   []string `json:"escalation_recipients"`

	PipelineID    *uint `json:"pipeline_id"`
	HealthCheckID *uint `json:"health_check_id"`
}

// UpdateAlertRuleRequest is the request body for PUT /api/alerts/rules/{id}.
type UpdateAlertRuleRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description"`
	Conditions  *database.JSONB `json:"conditions"`
	Severity    *string         `json:"severity"`
	IsActive    *bool           `json:"is_active"`

	Channels   *[]string `json:"channels"`
	Recipients *[]string `json:"recipients"`

	CooldownMinutes *int `json:"cooldown_minutes" validate:"omitempty,min=0"`

	EscalationEnabled      *bool     `json:"escalation_enabled"`
	EscalationDelayMinutes *int      `json:"escalation_delay_minutes"`
	EscalationRecipients   *[]string `json:"escalation_recipients"`
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewPaginatedResponse assembles the standard list envelope.
func NewPaginatedResponse(data interface{}, p PaginationParams, total int64) PaginatedResponse {
	return PaginatedResponse{
		Data: data,
		Pagination: PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      total,
			TotalPages: p.TotalPages(total),
		},
	}
}

package api

import (
	"time"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/database"
)

// UserResponse is the API representation of a user.
type UserResponse struct {
	ID             uint       `json:"id"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	FullName       string     `json:"full_name"`
	Role           string     `json:"role,omitempty"`
	OrganizationID uint       `json:"organization_id"`
	IsActive       bool       `json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToUserResponse maps a user model to its API representation.
func ToUserResponse(u *database.User) *UserResponse {
	resp := &UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		OrganizationID: u.OrganizationID,
		IsActive:       u.IsActive,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
	if u.Role.Name != "" {
		resp.Role = string(u.Role.Name)
	}
	return resp
}

// ToUserResponses maps a slice of user models.
func ToUserResponses(users []database.User) []*UserResponse {
	out := make([]*UserResponse, len(users))
	for i := range users {
		out[i] = ToUserResponse(&users[i])
	}
	return out
}

// OrganizationResponse is the API representation of an organization.
type OrganizationResponse struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	SubscriptionTier string    `json:"subscription_tier"`
	PipelineLimit    int       `json:"pipeline_limit"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// ToOrganizationResponse maps an organization model to its API representation.
func ToOrganizationResponse(org *database.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:               org.ID,
		Name:             org.Name,
		Slug:             org.Slug,
		SubscriptionTier: string(org.SubscriptionTier),
		PipelineLimit:    org.SubscriptionTier.PipelineLimit(),
		IsActive:         org.IsActive,
		CreatedAt:        org.CreatedAt,
	}
}

// PipelineResponse is the API representation of a pipeline.
type PipelineResponse struct {
	ID          uint           `json:"id"`
	UUID        string         `json:"uuid"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	Config      database.JSONB `json:"config,omitempty"`
	Schedule    string         `json:"schedule,omitempty"`
	Tags        []string       `json:"tags,omitempty"`

	TimeoutMinutes            int   `json:"timeout_minutes"`
	MaxRetries                int   `json:"max_retries"`
	FreshnessThresholdMinutes int   `json:"freshness_threshold_minutes"`
	ExpectedRecordsMin        int64 `json:"expected_records_min"`
	DataSourceID              *uint `json:"data_source_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToPipelineResponse maps a pipeline model to its API representation.
func ToPipelineResponse(p *database.Pipeline) *PipelineResponse {
	return &PipelineResponse{
		ID:          p.ID,
		UUID:        p.UUID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		Status:      string(p.Status),
		Config:      p.Config,
		Schedule:    p.Schedule,
		Tags:        p.Tags,

		TimeoutMinutes:            p.TimeoutMinutes,
		MaxRetries:                p.MaxRetries,
		FreshnessThresholdMinutes: p.FreshnessThresholdMinutes,
		ExpectedRecordsMin:        p.ExpectedRecordsMin,
		DataSourceID:              p.DataSourceID,

		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ToPipelineResponses maps a slice of pipeline models.
func ToPipelineResponses(pipelines []database.Pipeline) []*PipelineResponse {
	out := make([]*PipelineResponse, len(pipelines))
	for i := range pipelines {
		out[i] = ToPipelineResponse(&pipelines[i])
	}
	return out
}

// PipelineRunResponse is the API representation of a pipeline run.
type PipelineRunResponse struct {
	ID          uint       `json:"id"`
	UUID        string     `json:"uuid"`
	PipelineID  uint       `json:"pipeline_id"`
	Status      string     `json:"status"`
	TriggeredBy string     `json:"triggered_by,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	DurationSeconds  float64 `json:"duration_seconds"`
	RecordsProcessed int64   `json:"records_processed"`
	RecordsFailed    int64   `json:"records_failed"`
	DataVolumeBytes  int64   `json:"data_volume_bytes"`

	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorDetails database.JSONB `json:"error_details,omitempty"`

	RetryOfRunID *uint `json:"retry_of_run_id,omitempty"`
	RetryCount   int   `json:"retry_count"`

	CreatedAt time.Time `json:"created_at"`
}

// ToPipelineRunResponse maps a run model to its API representation.
func ToPipelineRunResponse(r *database.PipelineRun) *PipelineRunResponse {
	return &PipelineRunResponse{
		ID:          r.ID,
		UUID:        r.UUID,
		PipelineID:  r.PipelineID,
		Status:      string(r.Status),
		TriggeredBy: r.TriggeredBy,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,

		DurationSeconds:  r.DurationSeconds,
		RecordsProcessed: r.RecordsProcessed,
		RecordsFailed:    r.RecordsFailed,
		DataVolumeBytes:  r.DataVolumeBytes,

		ErrorMessage: r.ErrorMessage,
		ErrorDetails: r.ErrorDetails,

		RetryOfRunID: r.RetryOfRunID,
		RetryCount:   r.RetryCount,

		CreatedAt: r.CreatedAt,
	}
}

// ToPipelineRunResponses maps a slice of run models.
func ToPipelineRunResponses(runs []database.PipelineRun) []*PipelineRunResponse {
	out := make([]*PipelineRunResponse, len(runs))
	for i := range runs {
		out[i] = ToPipelineRunResponse(&runs[i])
	}
	return out
}

// DataSourceResponse is the API representation of a data source.
// Connection config is scrubbed of credential fields before exposure.
type DataSourceResponse struct {
	ID               uint           `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Type             string         `json:"type"`
	ConnectionConfig database.JSONB `json:"connection_config,omitempty"`
	IsActive         bool           `json:"is_active"`

	CheckIntervalSeconds int      `json:"check_interval_seconds"`
	TimeoutSeconds       int      `json:"timeout_seconds"`
	Tags                 []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToDataSourceResponse maps a data source model to its API representation.
func ToDataSourceResponse(ds *database.DataSource) *DataSourceResponse {
	return &DataSourceResponse{
		ID:               ds.ID,
		Name:             ds.Name,
		Description:      ds.Description,
		Type:             string(ds.Type),
		ConnectionConfig: ds.ScrubbedConfig(),
		IsActive:         ds.IsActive,

		CheckIntervalSeconds: ds.CheckIntervalSeconds,
		TimeoutSeconds:       ds.TimeoutSeconds,
		Tags:                 ds.Tags,

		CreatedAt: ds.CreatedAt,
		UpdatedAt: ds.UpdatedAt,
	}
}

// ToDataSourceResponses maps a slice of data source models.
func ToDataSourceResponses(sources []database.DataSource) []*DataSourceResponse {
	out := make([]*DataSourceResponse, len(sources))
	for i := range sources {
		out[i] = ToDataSourceResponse(&sources[i])
	}
	return out
}

// HealthCheckResponse is the API representation of a health check.
type HealthCheckResponse struct {
	ID           uint           `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Type         string         `json:"type"`
	Config       database.JSONB `json:"config,omitempty"`
	DataSourceID uint           `json:"data_source_id"`
	IsActive     bool           `json:"is_active"`

	WarningThreshold  *float64 `json:"warning_threshold,omitempty"`
	CriticalThreshold *float64 `json:"critical_threshold,omitempty"`
	AlertOnWarning    bool     `json:"alert_on_warning"`
	AlertOnCritical   bool     `json:"alert_on_critical"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToHealthCheckResponse maps a health check model to its API representation.
func ToHealthCheckResponse(hc *database.HealthCheck) *HealthCheckResponse {
	return &HealthCheckResponse{
		ID:           hc.ID,
		Name:         hc.Name,
		Description:  hc.Description,
		Type:         string(hc.Type),
		Config:       hc.Config,
		DataSourceID: hc.DataSourceID,
		IsActive:     hc.IsActive,

		WarningThreshold:  hc.WarningThreshold,
		CriticalThreshold: hc.CriticalThreshold,
		AlertOnWarning:    hc.AlertOnWarning,
		AlertOnCritical:   hc.AlertOnCritical,

		CreatedAt: hc.CreatedAt,
		UpdatedAt: hc.UpdatedAt,
	}
}

// ToHealthCheckResponses maps a slice of health check models.
func ToHealthCheckResponses(checks []database.HealthCheck) []*HealthCheckResponse {
	out := make([]*HealthCheckResponse, len(checks))
	for i := range checks {
		out[i] = ToHealthCheckResponse(&checks[i])
	}
	return out
}

// HealthCheckResultResponse is the API representation of a check result.
type HealthCheckResultResponse struct {
	ID            uint      `json:"id"`
	HealthCheckID uint      `json:"health_check_id"`
	Status        string    `json:"status"`
	MetricValue   *float64  `json:"metric_value,omitempty"`
	MetricUnit    string    `json:"metric_unit,omitempty"`
	Message       string    `json:"message,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// ToHealthCheckResultResponse maps a result model to its API representation.
func ToHealthCheckResultResponse(res *database.HealthCheckResult) *HealthCheckResultResponse {
	return &HealthCheckResultResponse{
		ID:            res.ID,
		HealthCheckID: res.HealthCheckID,
		Status:        string(res.Status),
		MetricValue:   res.MetricValue,
		MetricUnit:    res.MetricUnit,
		Message:       res.Message,
		CheckedAt:     res.CheckedAt,
	}
}

// ToHealthCheckResultResponses maps a slice of result models.
func ToHealthCheckResultResponses(results []database.HealthCheckResult) []*HealthCheckResultResponse {
	out := make([]*HealthCheckResultResponse, len(results))
	for i := range results {
		out[i] = ToHealthCheckResultResponse(&results[i])
	}
	return out
}

// AlertRuleResponse is the API representation of an alert rule.
type AlertRuleResponse struct {
	ID          uint           `json:"id"`
	UUID        string         `json:"uuid"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	RuleType    string         `json:"rule_type"`
	Conditions  database.JSONB `json:"conditions,omitempty"`
	Severity    string         `json:"severity"`
	IsActive    bool           `json:"is_active"`

	Channels   []string `json:"channels,omitempty"`
	Recipients []string `json:"recipients,omitempty"`

	CooldownMinutes int `json:"cooldown_minutes"`

	EscalationEnabled      bool     `json:"escalation_enabled"`
	EscalationDelayMinutes int      `json:"escalation_delay_minutes"`
	EscalationRecipients   []string `json:"escalation_recipients,omitempty"`

	PipelineID    *uint `json:"pipeline_id,omitempty"`
	HealthCheckID *uint `json:"health_check_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToAlertRuleResponse maps an alert rule model to its API representation.
func ToAlertRuleResponse(rule *database.AlertRule) *AlertRuleResponse {
	return &AlertRuleResponse{
		ID:          rule.ID,
		UUID:        rule.UUID,
		Name:        rule.Name,
		Description: rule.Description,
		RuleType:    string(rule.RuleType),
		Conditions:  rule.Conditions,
		Severity:    string(rule.Severity),
		IsActive:    rule.IsActive,

		Channels:   rule.Channels,
		Recipients: rule.Recipients,

		CooldownMinutes: rule.CooldownMinutes,

		EscalationEnabled:      rule.EscalationEnabled,
		EscalationDelayMinutes: rule.EscalationDelayMinutes,
		EscalationRecipients:   rule.EscalationRecipients,

		PipelineID:    rule.PipelineID,
		HealthCheckID: rule.HealthCheckID,

		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}

// ToAlertRuleResponses maps a slice of alert rule models.
func ToAlertRuleResponses(rules []database.AlertRule) []*AlertRuleResponse {
	out := make([]*AlertRuleResponse, len(rules))
	for i := range rules {
		out[i] = ToAlertRuleResponse(&rules[i])
	}
	return out
}

// AlertResponse is the API representation of an alert. It carries the
// derived fields is_open and duration_minutes alongside the stored state.
type AlertResponse struct {
	ID          uint           `json:"id"`
	AlertRuleID uint           `json:"alert_rule_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message,omitempty"`
	Severity    string         `json:"severity"`
	Status      string         `json:"status"`
	Context     database.JSONB `json:"context,omitempty"`

	SourceType string `json:"source_type,omitempty"`
	SourceID   *uint  `json:"source_id,omitempty"`

	IsOpen          bool    `json:"is_open"`
	DurationMinutes float64 `json:"duration_minutes"`

	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ToAlertResponse maps an alert model to its API representation. Open
// alerts report their age up to now, closed ones up to resolution.
func ToAlertResponse(a *database.Alert, now time.Time) *AlertResponse {
	return &AlertResponse{
		ID:          a.ID,
		AlertRuleID: a.AlertRuleID,
		Title:       a.Title,
		Message:     a.Message,
		Severity:    string(a.Severity),
		Status:      string(a.Status),
		Context:     a.Context,

		SourceType: a.SourceType,
		SourceID:   a.SourceID,

		IsOpen:          a.IsOpen(),
		DurationMinutes: alerts.DurationMinutes(a, now),

		AcknowledgedAt: a.AcknowledgedAt,
		AcknowledgedBy: a.AcknowledgedBy,
		ResolvedAt:     a.ResolvedAt,
		ResolvedBy:     a.ResolvedBy,

		CreatedAt: a.CreatedAt,
	}
}

// ToAlertResponses maps a slice of alert models.
func ToAlertResponses(items []database.Alert, now time.Time) []*AlertResponse {
	out := make([]*AlertResponse, len(items))
	for i := range items {
		out[i] = ToAlertResponse(&items[i], now)
	}
	return out
}

// AlertHistoryResponse is the API representation of a history entry.
type AlertHistoryResponse struct {
	ID          uint       `json:"id"`
	AlertID     uint       `json:"alert_id"`
	Action      string     `json:"action"`
	Description string     `json:"description,omitempty"`
	Channel     string     `json:"channel,omitempty"`
	Recipient   string     `json:"recipient,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Success     bool       `json:"success"`
	ErrorMsg    string     `json:"error_message,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToAlertHistoryResponse maps a history entry to its API representation.
func ToAlertHistoryResponse(h *database.AlertHistory) *AlertHistoryResponse {
	return &AlertHistoryResponse{
		ID:          h.ID,
		AlertID:     h.AlertID,
		Action:      h.Action,
		Description: h.Description,
		Channel:     h.Channel,
		Recipient:   h.Recipient,
		SentAt:      h.SentAt,
		Success:     h.Success,
		ErrorMsg:    h.ErrorMessage,
		CreatedBy:   h.CreatedBy,
		CreatedAt:   h.CreatedAt,
	}
}

// ToAlertHistoryResponses maps a slice of history entries.
func ToAlertHistoryResponses(entries []database.AlertHistory) []*AlertHistoryResponse {
	out := make([]*AlertHistoryResponse, len(entries))
	for i := range entries {
		out[i] = ToAlertHistoryResponse(&entries[i])
	}
	return out
}

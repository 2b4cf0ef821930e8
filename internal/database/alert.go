package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertRuleType determines how a rule's conditions are evaluated
type AlertRuleType string

const (
	RuleTypePipelineFailure AlertRuleType = "pipeline_failure"
	RuleTypeHealthCheck     AlertRuleType = "health_check"
	RuleTypeCustom          AlertRuleType = "custom"
)

// IsValidAlertRuleType checks whether s is a known rule type tag
func IsValidAlertRuleType(s string) bool {
	switch AlertRuleType(s) {
	case RuleTypePipelineFailure, RuleTypeHealthCheck, RuleTypeCustom:
		return true
	}
	return false
}

// AlertSeverity represents how urgent an alert is
type AlertSeverity string

const (
	SeverityInfo      AlertSeverity = "info"
	SeverityWarning   AlertSeverity = "warning"
	SeverityCritical  AlertSeverity = "critical"
	SeverityEmergency AlertSeverity = "emergency"
)

// IsValidAlertSeverity checks whether s is a known severity tag
func IsValidAlertSeverity(s string) bool {
	switch AlertSeverity(s) {
	case SeverityInfo, SeverityWarning, SeverityCritical, SeverityEmergency:
		return true
	}
	return false
}

// AlertStatus represents where an alert is in its lifecycle.
// Transitions: active -> acknowledged -> resolved. Resolved is terminal.
// Suppressed is reserved; no transition currently produces it.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusSuppressed   AlertStatus = "suppressed"
)

// IsValidAlertStatus checks whether s is a known alert status tag
func IsValidAlertStatus(s string) bool {
	switch AlertStatus(s) {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusSuppressed:
		return true
	}
	return false
}

// AlertChannel represents a notification delivery channel
type AlertChannel string

const (
	ChannelEmail   AlertChannel = "email"
	ChannelSlack   AlertChannel = "slack"
	ChannelSMS     AlertChannel = "sms"
	ChannelWebhook AlertChannel = "webhook"
	ChannelInApp   AlertChannel = "in_app"
)

// IsValidAlertChannel checks whether s is a known channel tag
func IsValidAlertChannel(s string) bool {
	switch AlertChannel(s) {
	case ChannelEmail, ChannelSlack, ChannelSMS, ChannelWebhook, ChannelInApp:
		return true
	}
	return false
}

// AlertRule describes when an alert should fire. Conditions is the raw
// JSONB form; it is validated into typed conditions at create/update time
// and decoded again at evaluation time.
type AlertRule struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UUID        string        `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Name        string        `gorm:"size:255;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	RuleType    AlertRuleType `gorm:"type:varchar(50);not null;index" json:"rule_type"`
	Conditions  JSONB         `gorm:"type:jsonb" json:"conditions"`
	Severity    AlertSeverity `gorm:"type:varchar(50);not null;default:'warning'" json:"severity"`
	IsActive    bool          `gorm:"default:true" json:"is_active"`

	Channels   StringList `gorm:"type:text" json:"channels"`
	Recipients StringList `gorm:"type:text" json:"recipients"`

	// No column default: zero disables the cooldown entirely, and a column
	// default would overwrite an explicit zero on create.
	CooldownMinutes int `json:"cooldown_minutes"`

	EscalationEnabled      bool       `gorm:"default:false" json:"escalation_enabled"`
	EscalationDelayMinutes int        `json:"escalation_delay_minutes"`
	EscalationRecipients   StringList `gorm:"type:text" json:"escalation_recipients"`

	// Optional scoping to a single pipeline or health check
	PipelineID    *uint `gorm:"index" json:"pipeline_id,omitempty"`
	HealthCheckID *uint `gorm:"index" json:"health_check_id,omitempty"`

	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	CreatedByID    uint      `json:"created_by_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relationships
	Alerts []Alert `gorm:"foreignKey:AlertRuleID" json:"alerts,omitempty"`
}

func (AlertRule) TableName() string {
	return "alert_rules"
}

// BeforeCreate hook assigns a UUID when none is set
func (r *AlertRule) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	return nil
}

// Alert is a fired instance of a rule. The (alert_rule_id, created_at)
// index backs the cooldown gate's most-recent lookup.
type Alert struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	AlertRuleID uint          `gorm:"not null;index:idx_alerts_rule_created" json:"alert_rule_id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Message     string        `gorm:"type:text" json:"message"`
	Severity    AlertSeverity `gorm:"type:varchar(50);not null" json:"severity"`
	Status      AlertStatus   `gorm:"type:varchar(50);not null;default:'active';index" json:"status"`

	// Snapshot of the evaluation context at fire time
	Context    JSONB  `gorm:"type:jsonb" json:"context"`
	SourceType string `gorm:"size:64;index" json:"source_type"` // "pipeline_run", "health_check_result"
	SourceID   *uint  `json:"source_id,omitempty"`

	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `gorm:"size:128" json:"acknowledged_by"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `gorm:"size:128" json:"resolved_by"`

	OrganizationID uint  `gorm:"not null;index" json:"organization_id"`
	PipelineID     *uint `gorm:"index" json:"pipeline_id,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_alerts_rule_created,sort:desc" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	AlertRule AlertRule      `gorm:"foreignKey:AlertRuleID" json:"alert_rule,omitempty"`
	History   []AlertHistory `gorm:"foreignKey:AlertID" json:"history,omitempty"`
}

func (Alert) TableName() string {
	return "alerts"
}

// IsOpen reports whether the alert still needs attention
func (a *Alert) IsOpen() bool {
	return a.Status == AlertStatusActive || a.Status == AlertStatusAcknowledged
}

// AlertHistory is an append-only audit record. Rows are never updated or
// deleted; corrections are recorded as new entries.
type AlertHistory struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	AlertID     uint   `gorm:"not null;index:idx_history_alert_created" json:"alert_id"`
	Action      string `gorm:"size:64;not null" json:"action"` // "created", "acknowledged", "resolved", "escalated", "notification_sent"
	Description string `gorm:"type:text" json:"description"`

	// Notification delivery fields, set for notification attempts only
	Channel      string     `gorm:"size:50" json:"channel,omitempty"`
	Recipient    string     `gorm:"size:255" json:"recipient,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	Success      bool       `json:"success"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`

	CreatedBy string    `gorm:"size:128" json:"created_by"`
	CreatedAt time.Time `gorm:"index:idx_history_alert_created" json:"created_at"`
}

func (AlertHistory) TableName() string {
	return "alert_history"
}

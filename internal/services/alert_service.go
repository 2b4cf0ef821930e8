package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/database"
)

// AlertService manages alert rules and the alert lifecycle. Conditions are
// validated at create and update time so evaluation never sees a malformed
// document.
type AlertService struct {
	db     *gorm.DB
	engine *alerts.Engine
}

// NewAlertService creates a new alert service
func NewAlertService(db *gorm.DB, engine *alerts.Engine) *AlertService {
	return &AlertService{db: db, engine: engine}
}

// AlertFilters narrow the alert list
type AlertFilters struct {
	Status   string
	Severity string
	RuleID   uint
}

// ========== Alert Rules ==========

// CreateRule validates and stores an alert rule
func (s *AlertService) CreateRule(orgID, createdBy uint, req *api.CreateAlertRuleRequest) (*database.AlertRule, error) {
	ruleType := database.AlertRuleType(req.RuleType)
	if _, err := alerts.ParseConditions(ruleType, req.Conditions); err != nil {
		return nil, err
	}

	severity := database.SeverityWarning
	if req.Severity != "" {
		if !database.IsValidAlertSeverity(req.Severity) {
			return nil, alerts.NewValidationError("severity", "unknown severity %q", req.Severity)
		}
		severity = database.AlertSeverity(req.Severity)
	}
	for _, ch := range req.Channels {
		if !database.IsValidAlertChannel(ch) {
			return nil, alerts.NewValidationError("channels", "unknown channel %q", ch)
		}
	}

	rule := &database.AlertRule{
		Name:                 req.Name,
		Description:          req.Description,
		RuleType:             ruleType,
		Conditions:           req.Conditions,
		Severity:             severity,
		IsActive:             true,
		Channels:             req.Channels,
		Recipients:           req.Recipients,
		EscalationEnabled:    req.EscalationEnabled,
		EscalationRecipients: req.EscalationRecipients,
		PipelineID:           req.PipelineID,
		HealthCheckID:        req.HealthCheckID,
		OrganizationID:       orgID,
		CreatedByID:          createdBy,
	}
	if req.CooldownMinutes != nil {
		if *req.CooldownMinutes < 0 {
			return nil, alerts.NewValidationError("cooldown_minutes", "must not be negative")
		}
		rule.CooldownMinutes = *req.CooldownMinutes
	} else {
		rule.CooldownMinutes = 60
	}
	if req.EscalationDelayMinutes > 0 {
		rule.EscalationDelayMinutes = req.EscalationDelayMinutes
	} else {
		rule.EscalationDelayMinutes = 30
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// GetRule returns an alert rule within the organization
func (s *AlertService) GetRule(orgID, ruleID uint) (*database.AlertRule, error) {
	var rule database.AlertRule
	err := s.db.Where("id = ? AND organization_id = ?", ruleID, orgID).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, alerts.NewNotFoundError("alert rule", ruleID)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns the organization's alert rules with pagination
func (s *AlertService) ListRules(orgID uint, ruleType string, p api.PaginationParams) ([]database.AlertRule, int64, error) {
	q := s.db.Model(&database.AlertRule{}).Where("organization_id = ?", orgID)
	if ruleType != "" {
		q = q.Where("rule_type = ?", ruleType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rules []database.AlertRule
	err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&rules).Error
	return rules, total, err
}

// UpdateRule applies a partial update, re-validating conditions when they change
func (s *AlertService) UpdateRule(orgID, ruleID uint, req *api.UpdateAlertRuleRequest) (*database.AlertRule, error) {
	rule, err := s.GetRule(orgID, ruleID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Conditions != nil {
		if _, err := alerts.ParseConditions(rule.RuleType, *req.Conditions); err != nil {
			return nil, err
		}
		updates["conditions"] = *req.Conditions
	}
	if req.Severity != nil {
		if !database.IsValidAlertSeverity(*req.Severity) {
			return nil, alerts.NewValidationError("severity", "unknown severity %q", *req.Severity)
		}
		updates["severity"] = *req.Severity
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Channels != nil {
		for _, ch := range *req.Channels {
			if !database.IsValidAlertChannel(ch) {
				return nil, alerts.NewValidationError("channels", "unknown channel %q", ch)
			}
		}
		updates["channels"] = database.StringList(*req.Channels)
	}
	if req.Recipients != nil {
		updates["recipients"] = database.StringList(*req.Recipients)
	}
	if req.CooldownMinutes != nil {
		if *req.CooldownMinutes < 0 {
			return nil, alerts.NewValidationError("cooldown_minutes", "must not be negative")
		}
		updates["cooldown_minutes"] = *req.CooldownMinutes
	}
	if req.EscalationEnabled != nil {
		updates["escalation_enabled"] = *req.EscalationEnabled
	}
	if req.EscalationDelayMinutes != nil {
		updates["escalation_delay_minutes"] = *req.EscalationDelayMinutes
	}
	if req.EscalationRecipients != nil {
		updates["escalation_recipients"] = database.StringList(*req.EscalationRecipients)
	}

	if len(updates) > 0 {
		if err := s.db.Model(rule).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetRule(orgID, ruleID)
}

// DeleteRule removes an alert rule. Fired alerts and their history are kept.
func (s *AlertService) DeleteRule(orgID, ruleID uint) error {
	rule, err := s.GetRule(orgID, ruleID)
	if err != nil {
		return err
	}
	return s.db.Delete(rule).Error
}

// ========== Alerts ==========

// GetAlert returns an alert within the organization
func (s *AlertService) GetAlert(orgID, alertID uint) (*database.Alert, error) {
	var alert database.Alert
	err := s.db.Where("id = ? AND organization_id = ?", alertID, orgID).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, alerts.NewNotFoundError("alert", alertID)
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListAlerts returns the organization's alerts with filters, newest first
func (s *AlertService) ListAlerts(orgID uint, f AlertFilters, p api.PaginationParams) ([]database.Alert, int64, error) {
	q := s.db.Model(&database.Alert{}).Where("organization_id = ?", orgID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.RuleID != 0 {
		q = q.Where("alert_rule_id = ?", f.RuleID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []database.Alert
	err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&items).Error
	return items, total, err
}

// Acknowledge applies the acknowledge transition
func (s *AlertService) Acknowledge(orgID, alertID uint, actor string) (*database.Alert, error) {
	return s.engine.AcknowledgeAlert(orgID, alertID, actor)
}

// Resolve applies the resolve transition
func (s *AlertService) Resolve(orgID, alertID uint, actor string) (*database.Alert, error) {
	return s.engine.ResolveAlert(orgID, alertID, actor)
}

// GetHistory returns an alert's audit trail, newest first
func (s *AlertService) GetHistory(orgID, alertID uint) ([]database.AlertHistory, error) {
	if _, err := s.GetAlert(orgID, alertID); err != nil {
		return nil, err
	}
	return s.engine.Recorder().ListForAlert(alertID)
}

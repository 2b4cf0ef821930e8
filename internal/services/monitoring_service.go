package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/connectors"
	"github.com/pipewatch/pipewatch/internal/database"
	"github.com/pipewatch/pipewatch/internal/metrics"
)

// ConnectorFactory builds a connector for a data source. Swappable in
// tests so health checks can run without real databases.
type ConnectorFactory func(sourceType database.DataSourceType, cfg connectors.ConnectionConfig) (connectors.Connector, error)

// MonitoringService manages data sources and health checks. Health check
// results are routed through the alert engine.
type MonitoringService struct {
	db        *gorm.DB
	engine    *alerts.Engine
	connector ConnectorFactory
}

// NewMonitoringService creates a new monitoring service
func NewMonitoringService(db *gorm.DB, engine *alerts.Engine) *MonitoringService {
	return &MonitoringService{
		db:        db,
		engine:    engine,
		connector: connectors.New,
	}
}

// SetConnectorFactory replaces the connector factory
func (s *MonitoringService) SetConnectorFactory(f ConnectorFactory) {
	s.connector = f
}

// ========== Data Sources ==========

// CreateDataSource registers an external system to monitor
func (s *MonitoringService) CreateDataSource(orgID, createdBy uint, req *api.CreateDataSourceRequest) (*database.DataSource, error) {
	if !database.IsValidDataSourceType(req.Type) {
		return nil, alerts.NewValidationError("type", "unknown data source type %q", req.Type)
	}

	var dup int64
	if err := s.db.Model(&database.DataSource{}).
		Where("organization_id = ? AND name = ?", orgID, req.Name).
		Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, alerts.NewValidationError("name", "data source %q already exists", req.Name)
	}

	ds := &database.DataSource{
		Name:             req.Name,
		Description:      req.Description,
		Type:             database.DataSourceType(req.Type),
		ConnectionConfig: req.ConnectionConfig,
		IsActive:         true,
		Tags:             req.Tags,
		OrganizationID:   orgID,
		CreatedByID:      createdBy,
	}
	if req.CheckIntervalSeconds > 0 {
		ds.CheckIntervalSeconds = req.CheckIntervalSeconds
	} else {
		ds.CheckIntervalSeconds = 300
	}
	if req.TimeoutSeconds > 0 {
		ds.TimeoutSeconds = req.TimeoutSeconds
	} else {
		ds.TimeoutSeconds = 30
	}

	if err := s.db.Create(ds).Error; err != nil {
		return nil, err
	}
	return ds, nil
}

// GetDataSource returns a data source within the organization
func (s *MonitoringService) GetDataSource(orgID, dsID uint) (*database.DataSource, error) {
	var ds database.DataSource
	err := s.db.Where("id = ? AND organization_id = ?", dsID, orgID).First(&ds).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, alerts.NewNotFoundError("data source", dsID)
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// ListDataSources returns the organization's data sources with pagination
func (s *MonitoringService) ListDataSources(orgID uint, p api.PaginationParams) ([]database.DataSource, int64, error) {
	q := s.db.Model(&database.DataSource{}).Where("organization_id = ?", orgID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sources []database.DataSource
	err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&sources).Error
	return sources, total, err
}

// UpdateDataSource applies a partial update
func (s *MonitoringService) UpdateDataSource(orgID, dsID uint, req *api.UpdateDataSourceRequest) (*database.DataSource, error) {
	ds, err := s.GetDataSource(orgID, dsID)
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
	if req.ConnectionConfig != nil {
		updates["connection_config"] = *req.ConnectionConfig
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.CheckIntervalSeconds != nil {
		updates["check_interval_seconds"] = *req.CheckIntervalSeconds
	}
	if req.TimeoutSeconds != nil {
		updates["timeout_seconds"] = *req.TimeoutSeconds
	}
	if req.Tags != nil {
		updates["tags"] = database.StringList(*req.Tags)
	}

	if len(updates) > 0 {
		if err := s.db.Model(ds).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetDataSource(orgID, dsID)
}

// DeleteDataSource removes a data source together with its checks and results
func (s *MonitoringService) DeleteDataSource(orgID, dsID uint) error {
	ds, err := s.GetDataSource(orgID, dsID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var checkIDs []uint
		if err := tx.Model(&database.HealthCheck{}).
			Where("data_source_id = ?", ds.ID).
			Pluck("id", &checkIDs).Error; err != nil {
			return err
		}
		if len(checkIDs) > 0 {
			if err := tx.Where("health_check_id IN ?", checkIDs).Delete(&database.HealthCheckResult{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", checkIDs).Delete(&database.HealthCheck{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(ds).Error
	})
}

// TestDataSource opens a live connection to the source and reports latency
func (s *MonitoringService) TestDataSource(ctx context.Context, orgID, dsID uint) (time.Duration, error) {
	ds, err := s.GetDataSource(orgID, dsID)
	if err != nil {
		return 0, err
	}

	conn, err := s.connector(ds.Type, connectors.ConfigFromJSONB(ds.ConnectionConfig))
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("MonitoringService: closing connector for source %d: %v", ds.ID, cerr)
		}
	}()

	timeout := time.Duration(ds.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.TestConnection(ctx); err != nil {
		return 0, err
	}
	return conn.Ping(ctx)
}

// ========== Health Checks ==========

// CreateHealthCheck attaches a recurring probe to a data source
func (s *MonitoringService) CreateHealthCheck(orgID, createdBy uint, req *api.CreateHealthCheckRequest) (*database.HealthCheck, error) {
	if !database.IsValidHealthCheckType(req.Type) {
		return nil, alerts.NewValidationError("type", "unknown health check type %q", req.Type)
	}
	if _, err := s.GetDataSource(orgID, req.DataSourceID); err != nil {
		return nil, err
	}

	hc := &database.HealthCheck{
		Name:              req.Name,
		Description:       req.Description,
		Type:              database.HealthCheckType(req.Type),
		Config:            req.Config,
		IsActive:          true,
		WarningThreshold:  req.WarningThreshold,
		CriticalThreshold: req.CriticalThreshold,
		AlertOnWarning:    req.AlertOnWarning,
		AlertOnCritical:   true,
		DataSourceID:      req.DataSourceID,
		OrganizationID:    orgID,
		CreatedByID:       createdBy,
	}
	if req.AlertOnCritical != nil {
		hc.AlertOnCritical = *req.AlertOnCritical
	}

	if err := s.db.Create(hc).Error; err != nil {
		return nil, err
	}
	return hc, nil
}

// GetHealthCheck returns a health check within the organization
func (s *MonitoringService) GetHealthCheck(orgID, checkID uint) (*database.HealthCheck, error) {
	var hc database.HealthCheck
	err := s.db.Where("id = ? AND organization_id = ?", checkID, orgID).First(&hc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, alerts.NewNotFoundError("health check", checkID)
	}
	if err != nil {
		return nil, err
	}
	return &hc, nil
}

// ListHealthChecks returns the organization's health checks with pagination
func (s *MonitoringService) ListHealthChecks(orgID uint, dataSourceID uint, p api.PaginationParams) ([]database.HealthCheck, int64, error) {
	q := s.db.Model(&database.HealthCheck{}).Where("organization_id = ?", orgID)
	if dataSourceID != 0 {
		q = q.Where("data_source_id = ?", dataSourceID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var checks []database.HealthCheck
	err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&checks).Error
	return checks, total, err
}

// UpdateHealthCheck applies a partial update
func (s *MonitoringService) UpdateHealthCheck(orgID, checkID uint, req *api.UpdateHealthCheckRequest) (*database.HealthCheck, error) {
	hc, err := s.GetHealthCheck(orgID, checkID)
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
	if req.Config != nil {
		updates["config"] = *req.Config
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.WarningThreshold != nil {
		updates["warning_threshold"] = *req.WarningThreshold
	}
	if req.CriticalThreshold != nil {
		updates["critical_threshold"] = *req.CriticalThreshold
	}
	if req.AlertOnWarning != nil {
		updates["alert_on_warning"] = *req.AlertOnWarning
	}
	if req.AlertOnCritical != nil {
		updates["alert_on_critical"] = *req.AlertOnCritical
	}

	if len(updates) > 0 {
		if err := s.db.Model(hc).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetHealthCheck(orgID, checkID)
}

// DeleteHealthCheck removes a health check and its results
func (s *MonitoringService) DeleteHealthCheck(orgID, checkID uint) error {
	hc, err := s.GetHealthCheck(orgID, checkID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("health_check_id = ?", hc.ID).Delete(&database.HealthCheckResult{}).Error; err != nil {
			return err
		}
		return tx.Delete(hc).Error
	})
}

// RunHealthCheck executes one health check. Connectivity checks probe the
// data source; threshold checks grade the supplied metric value. The result
// is stored and, when breaching, routed through the alert engine.
func (s *MonitoringService) RunHealthCheck(ctx context.Context, orgID, checkID uint, req *api.RunHealthCheckRequest) (*database.HealthCheckResult, []*database.Alert, error) {
	hc, err := s.GetHealthCheck(orgID, checkID)
	if err != nil {
		return nil, nil, err
	}

	var result *database.HealthCheckResult
	if hc.Type == database.HealthCheckTypeConnectivity {
		result = s.runConnectivityCheck(ctx, hc)
	} else {
		if req == nil || req.MetricValue == nil {
			return nil, nil, alerts.NewValidationError("metric_value", "required for %s checks", hc.Type)
		}
		result = gradeThresholdCheck(hc, *req.MetricValue, req.MetricUnit)
	}

	if err := s.db.Create(result).Error; err != nil {
		return nil, nil, err
	}
	metrics.HealthChecksRun.WithLabelValues(string(hc.Type), string(result.Status)).Inc()

	var fired []*database.Alert
	if result.IsBreaching(hc) {
		fired, err = s.evaluateCheckRules(hc, result)
		if err != nil {
			log.Printf("MonitoringService: rule evaluation failed for check %d: %v", hc.ID, err)
		}
	}
	return result, fired, nil
}

// runConnectivityCheck probes the data source and grades the outcome
func (s *MonitoringService) runConnectivityCheck(ctx context.Context, hc *database.HealthCheck) *database.HealthCheckResult {
	result := &database.HealthCheckResult{HealthCheckID: hc.ID}

	var ds database.DataSource
	if err := s.db.First(&ds, hc.DataSourceID).Error; err != nil {
		result.Status = database.HealthStatusUnknown
		result.ErrorMessage = err.Error()
		return result
	}

	conn, err := s.connector(ds.Type, connectors.ConfigFromJSONB(ds.ConnectionConfig))
	if err != nil {
		result.Status = database.HealthStatusUnknown
		result.ErrorMessage = err.Error()
		return result
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("MonitoringService: closing connector for source %d: %v", ds.ID, cerr)
		}
	}()

	timeout := time.Duration(ds.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	latency, err := conn.Ping(ctx)
	if err != nil {
		result.Status = database.HealthStatusCritical
		result.ErrorMessage = err.Error()
		result.Message = fmt.Sprintf("data source %s unreachable", ds.Name)
		return result
	}

	ms := float64(latency.Milliseconds())
	result.Status = database.HealthStatusHealthy
	result.MetricValue = &ms
	result.MetricUnit = "ms"
	result.DurationMs = latency.Milliseconds()
	result.Message = fmt.Sprintf("data source %s reachable in %s", ds.Name, latency)

	// Latency thresholds apply when configured
	if hc.CriticalThreshold != nil && ms >= *hc.CriticalThreshold {
		result.Status = database.HealthStatusCritical
	} else if hc.WarningThreshold != nil && ms >= *hc.WarningThreshold {
		result.Status = database.HealthStatusWarning
	}
	return result
}

// gradeThresholdCheck compares an observed metric value against the
// check's warning and critical thresholds. Freshness and volume breach
// upward or downward depending on the type: freshness grows worse as age
// increases, volume and quality grow worse as the value drops.
func gradeThresholdCheck(hc *database.HealthCheck, value float64, unit string) *database.HealthCheckResult {
	result := &database.HealthCheckResult{
		HealthCheckID: hc.ID,
		MetricValue:   &value,
		MetricUnit:    unit,
		Status:        database.HealthStatusHealthy,
	}

	breaches := func(threshold float64) bool {
		if hc.Type == database.HealthCheckTypeFreshness {
			return value >= threshold
		}
		return value <= threshold
	}

	switch {
	case hc.CriticalThreshold != nil && breaches(*hc.CriticalThreshold):
		result.Status = database.HealthStatusCritical
		result.Message = fmt.Sprintf("%s check breached critical threshold: %v", hc.Type, value)
	case hc.WarningThreshold != nil && breaches(*hc.WarningThreshold):
		result.Status = database.HealthStatusWarning
		result.Message = fmt.Sprintf("%s check breached warning threshold: %v", hc.Type, value)
	default:
		result.Message = fmt.Sprintf("%s check healthy: %v", hc.Type, value)
	}
	return result
}

// evaluateCheckRules runs the tenant's health check rules against a
// breaching result. Rules scoped to another check are skipped.
func (s *MonitoringService) evaluateCheckRules(hc *database.HealthCheck, result *database.HealthCheckResult) ([]*database.Alert, error) {
	var rules []database.AlertRule
	err := s.db.Where("organization_id = ? AND rule_type = ? AND is_active = ?",
		hc.OrganizationID, database.RuleTypeHealthCheck, true).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	ctx := alerts.EvalContext{
		Status: string(result.Status),
		Extra: database.JSONB{
			"health_check_id":   hc.ID,
			"health_check_name": hc.Name,
			"data_source_id":    hc.DataSourceID,
		},
	}
	if result.MetricValue != nil {
		ctx.MetricValue = *result.MetricValue
	}

	var fired []*database.Alert
	var firstErr error
	for i := range rules {
		rule := &rules[i]
		if rule.HealthCheckID != nil && *rule.HealthCheckID != hc.ID {
			continue
		}
		alert, err := s.engine.EvaluateAndMaybeFire(rule, ctx, "health_check_result", &result.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if alert != nil {
			fired = append(fired, alert)
		}
	}
	return fired, firstErr
}

// ListHealthCheckResults returns a check's results, newest first
func (s *MonitoringService) ListHealthCheckResults(orgID, checkID uint, p api.PaginationParams) ([]database.HealthCheckResult, int64, error) {
	if _, err := s.GetHealthCheck(orgID, checkID); err != nil {
		return nil, 0, err
	}

	q := s.db.Model(&database.HealthCheckResult{}).Where("health_check_id = ?", checkID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []database.HealthCheckResult
	err := q.Order("checked_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&results).Error
	return results, total, err
}

package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/database"
	"github.com/pipewatch/pipewatch/internal/metrics"
)

// PipelineService manages pipeline descriptors, recorded runs and metrics.
// Recording a run routes the outcome through the alert engine.
type PipelineService struct {
	db     *gorm.DB
	engine *alerts.Engine
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(db *gorm.DB, engine *alerts.Engine) *PipelineService {
	return &PipelineService{db: db, engine: engine}
}

// PipelineFilters narrow the pipeline list
type PipelineFilters struct {
	Status string
	Type   string
	Search string
}

// CreatePipeline registers a pipeline, enforcing the tenant's plan limit
func (s *PipelineService) CreatePipeline(orgID, createdBy uint, req *api.CreatePipelineRequest) (*database.Pipeline, error) {
	if !database.IsValidPipelineType(req.Type) {
		return nil, alerts.NewValidationError("type", "unknown pipeline type %q", req.Type)
	}

	var org database.Organization
	if err := s.db.First(&org, orgID).Error; err != nil {
		return nil, err
	}
	limit := org.SubscriptionTier.PipelineLimit()
	if limit >= 0 {
		var count int64
		if err := s.db.Model(&database.Pipeline{}).Where("organization_id = ?", orgID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count >= int64(limit) {
			return nil, alerts.NewValidationError("name", "pipeline limit of %d reached for the %s plan", limit, org.SubscriptionTier)
		}
	}

	var dup int64
	if err := s.db.Model(&database.Pipeline{}).
		Where("organization_id = ? AND name = ?", orgID, req.Name).
		Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, alerts.NewValidationError("name", "pipeline %q already exists", req.Name)
	}

	p := &database.Pipeline{
		Name:           req.Name,
		Description:    req.Description,
		Type:           database.PipelineType(req.Type),
		Status:         database.PipelineStatusActive,
		Config:         req.Config,
		Schedule:       req.Schedule,
		Tags:           req.Tags,
		OrganizationID: orgID,
		DataSourceID:   req.DataSourceID,
		CreatedByID:    createdBy,
	}
	if req.TimeoutMinutes > 0 {
		p.TimeoutMinutes = req.TimeoutMinutes
	} else {
		p.TimeoutMinutes = 60
	}
	p.MaxRetries = req.MaxRetries
	if req.FreshnessThresholdMinutes > 0 {
		p.FreshnessThresholdMinutes = req.FreshnessThresholdMinutes
	} else {
		p.FreshnessThresholdMinutes = 1440
	}
	p.ExpectedRecordsMin = req.ExpectedRecordsMin

	if err := s.db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPipeline returns a pipeline within the organization
func (s *PipelineService) GetPipeline(orgID, pipelineID uint) (*database.Pipeline, error) {
	var p database.Pipeline
	err := s.db.Where("id = ? AND organization_id = ?", pipelineID, orgID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, alerts.NewNotFoundError("pipeline", pipelineID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPipelines returns the organization's pipelines with filters and pagination
func (s *PipelineService) ListPipelines(orgID uint, f PipelineFilters, p api.PaginationParams) ([]database.Pipeline, int64, error) {
	q := s.db.Model(&database.Pipeline{}).Where("organization_id = ?", orgID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Search != "" {
		q = q.Where("name LIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var pipelines []database.Pipeline
	err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&pipelines).Error
	return pipelines, total, err
}

// UpdatePipeline applies a partial update
func (s *PipelineService) UpdatePipeline(orgID, pipelineID uint, req *api.UpdatePipelineRequest) (*database.Pipeline, error) {
	p, err := s.GetPipeline(orgID, pipelineID)
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
	if req.Status != nil {
		if !database.IsValidPipelineStatus(*req.Status) {
			return nil, alerts.NewValidationError("status", "unknown pipeline status %q", *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.Config != nil {
		updates["config"] = *req.Config
	}
	if req.Schedule != nil {
		updates["schedule"] = *req.Schedule
	}
	if req.Tags != nil {
		updates["tags"] = database.StringList(*req.Tags)
	}
	if req.TimeoutMinutes != nil {
		updates["timeout_minutes"] = *req.TimeoutMinutes
	}
	if req.MaxRetries != nil {
		updates["max_retries"] = *req.MaxRetries
	}
	if req.FreshnessThresholdMinutes != nil {
		updates["freshness_threshold_minutes"] = *req.FreshnessThresholdMinutes
	}
	if req.ExpectedRecordsMin != nil {
		updates["expected_records_min"] = *req.ExpectedRecordsMin
	}
	if req.DataSourceID != nil {
		updates["data_source_id"] = *req.DataSourceID
	}

	if len(updates) > 0 {
		if err := s.db.Model(p).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetPipeline(orgID, pipelineID)
}

// DeletePipeline removes a pipeline and its runs
func (s *PipelineService) DeletePipeline(orgID, pipelineID uint) error {
	p, err := s.GetPipeline(orgID, pipelineID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pipeline_id = ?", p.ID).Delete(&database.PipelineRun{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pipeline_id = ?", p.ID).Delete(&database.PipelineMetric{}).Error; err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
}

// RecordRun stores a run outcome pushed by an external scheduler and
// evaluates the organization's pipeline failure rules against it.
func (s *PipelineService) RecordRun(orgID, pipelineID uint, req *api.RecordRunRequest) (*database.PipelineRun, []*database.Alert, error) {
	p, err := s.GetPipeline(orgID, pipelineID)
	if err != nil {
		return nil, nil, err
	}
	if !database.IsValidRunStatus(req.Status) {
		return nil, nil, alerts.NewValidationError("status", "unknown run status %q", req.Status)
	}

	run := &database.PipelineRun{
		PipelineID:       p.ID,
		Status:           database.RunStatus(req.Status),
		TriggeredBy:      req.TriggeredBy,
		StartedAt:        req.StartedAt,
		CompletedAt:      req.CompletedAt,
		DurationSeconds:  req.DurationSeconds,
		RecordsProcessed: req.RecordsProcessed,
		RecordsFailed:    req.RecordsFailed,
		DataVolumeBytes:  req.DataVolumeBytes,
		ErrorMessage:     req.ErrorMessage,
		ErrorDetails:     req.ErrorDetails,
		RunMetadata:      req.RunMetadata,
		RetryOfRunID:     req.RetryOfRunID,
	}
	if run.DurationSeconds == 0 && req.StartedAt != nil && req.CompletedAt != nil {
		run.DurationSeconds = req.CompletedAt.Sub(*req.StartedAt).Seconds()
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, nil, err
	}
	metrics.PipelineRunsRecorded.WithLabelValues(req.Status).Inc()

	fired, err := s.evaluateRunRules(p, run)
	if err != nil {
		// The run is stored; rule evaluation errors must not lose it
		log.Printf("PipelineService: rule evaluation failed for run %d: %v", run.ID, err)
	}
	return run, fired, nil
}

// evaluateRunRules runs the tenant's pipeline failure rules against a
// recorded run. Rules scoped to another pipeline are skipped.
func (s *PipelineService) evaluateRunRules(p *database.Pipeline, run *database.PipelineRun) ([]*database.Alert, error) {
	var rules []database.AlertRule
	err := s.db.Where("organization_id = ? AND rule_type = ? AND is_active = ?",
		p.OrganizationID, database.RuleTypePipelineFailure, true).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	failureCount, err := s.consecutiveFailures(p.ID)
	if err != nil {
		return nil, err
	}

	ctx := alerts.EvalContext{
		Status:          string(run.Status),
		FailureCount:    failureCount,
		DurationSeconds: run.DurationSeconds,
		Extra: database.JSONB{
			"pipeline_id":   p.ID,
			"pipeline_name": p.Name,
			"run_id":        run.ID,
			"run_uuid":      run.UUID,
		},
	}

	var fired []*database.Alert
	var firstErr error
	for i := range rules {
		rule := &rules[i]
		if rule.PipelineID != nil && *rule.PipelineID != p.ID {
			continue
		}
		alert, err := s.engine.EvaluateAndMaybeFire(rule, ctx, "pipeline_run", &run.ID)
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

// consecutiveFailures counts failed or timed out runs since the pipeline's
// most recent successful run.
func (s *PipelineService) consecutiveFailures(pipelineID uint) (int, error) {
	var lastSuccess database.PipelineRun
	err := s.db.Select("created_at").
		Where("pipeline_id = ? AND status = ?", pipelineID, database.RunStatusSuccess).
		Order("created_at DESC").
		First(&lastSuccess).Error

	q := s.db.Model(&database.PipelineRun{}).
		Where("pipeline_id = ? AND status IN ?", pipelineID,
			[]database.RunStatus{database.RunStatusFailed, database.RunStatusTimeout})
	if err == nil {
		q = q.Where("created_at > ?", lastSuccess.CreatedAt)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ListRuns returns a pipeline's runs, newest first
func (s *PipelineService) ListRuns(orgID, pipelineID uint, status string, p api.PaginationParams) ([]database.PipelineRun, int64, error) {
	if _, err := s.GetPipeline(orgID, pipelineID); err != nil {
		return nil, 0, err
	}

	q := s.db.Model(&database.PipelineRun{}).Where("pipeline_id = ?", pipelineID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []database.PipelineRun
	err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&runs).Error
	return runs, total, err
}

// TriggerRun records a pending manually-triggered run. PipeWatch does not
// execute pipelines; the scheduler picks the run up and reports back.
func (s *PipelineService) TriggerRun(orgID, pipelineID uint, triggeredBy string) (*database.PipelineRun, error) {
	p, err := s.GetPipeline(orgID, pipelineID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	run := &database.PipelineRun{
		PipelineID:  p.ID,
		Status:      database.RunStatusPending,
		TriggeredBy: triggeredBy,
		StartedAt:   &now,
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, err
	}
	metrics.PipelineRunsRecorded.WithLabelValues(string(database.RunStatusPending)).Inc()
	return run, nil
}

// RecordMetric attaches a named measurement to a pipeline
func (s *PipelineService) RecordMetric(orgID, pipelineID uint, req *api.RecordMetricRequest) (*database.PipelineMetric, error) {
	p, err := s.GetPipeline(orgID, pipelineID)
	if err != nil {
		return nil, err
	}
	m := &database.PipelineMetric{
		PipelineID:    p.ID,
		PipelineRunID: req.PipelineRunID,
		Name:          req.Name,
		Value:         req.Value,
		Unit:          req.Unit,
		Metadata:      req.Metadata,
	}
	if req.RecordedAt != nil {
		m.RecordedAt = *req.RecordedAt
	}
	if err := s.db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMetrics returns a pipeline's recorded metrics, newest first
func (s *PipelineService) ListMetrics(orgID, pipelineID uint, name string, p api.PaginationParams) ([]database.PipelineMetric, int64, error) {
	if _, err := s.GetPipeline(orgID, pipelineID); err != nil {
		return nil, 0, err
	}

	q := s.db.Model(&database.PipelineMetric{}).Where("pipeline_id = ?", pipelineID)
	if name != "" {
		q = q.Where("name = ?", name)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []database.PipelineMetric
	err := q.Order("recorded_at DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&items).Error
	return items, total, err
}

package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/database"
)

// DashboardService aggregates tenant-wide counts for the overview endpoint
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Overview is the dashboard summary document
type Overview struct {
	Pipelines struct {
		Total    int64 `json:"total"`
		Active   int64 `json:"active"`
		Inactive int64 `json:"inactive"`
	} `json:"pipelines"`

	Runs struct {
		Last24h     int64   `json:"last_24h"`
		Failed24h   int64   `json:"failed_24h"`
		SuccessRate float64 `json:"success_rate"`
		AvgDuration float64 `json:"avg_duration_seconds"`
	} `json:"runs"`

	Alerts struct {
		Open         int64 `json:"open"`
		Active       int64 `json:"active"`
		Acknowledged int64 `json:"acknowledged"`
		Critical     int64 `json:"critical"`
		Fired24h     int64 `json:"fired_24h"`
	} `json:"alerts"`

	HealthChecks struct {
		Total     int64 `json:"total"`
		Breaching int64 `json:"breaching"`
	} `json:"health_checks"`
}

// GetOverview computes the tenant's dashboard summary
func (s *DashboardService) GetOverview(orgID uint) (*Overview, error) {
	var o Overview
	dayAgo := time.Now().Add(-24 * time.Hour)

	pipelines := s.db.Model(&database.Pipeline{}).Where("organization_id = ?", orgID)
	if err := pipelines.Count(&o.Pipelines.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&database.Pipeline{}).
		Where("organization_id = ? AND status = ?", orgID, database.PipelineStatusActive).
		Count(&o.Pipelines.Active).Error; err != nil {
		return nil, err
	}
	o.Pipelines.Inactive = o.Pipelines.Total - o.Pipelines.Active

	runs := s.db.Model(&database.PipelineRun{}).
		Joins("JOIN pipelines ON pipelines.id = pipeline_runs.pipeline_id").
		Where("pipelines.organization_id = ? AND pipeline_runs.created_at > ?", orgID, dayAgo)
	if err := runs.Count(&o.Runs.Last24h).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&database.PipelineRun{}).
		Joins("JOIN pipelines ON pipelines.id = pipeline_runs.pipeline_id").
		Where("pipelines.organization_id = ? AND pipeline_runs.created_at > ? AND pipeline_runs.status IN ?",
			orgID, dayAgo, []database.RunStatus{database.RunStatusFailed, database.RunStatusTimeout}).
		Count(&o.Runs.Failed24h).Error; err != nil {
		return nil, err
	}
	if o.Runs.Last24h > 0 {
		o.Runs.SuccessRate = float64(o.Runs.Last24h-o.Runs.Failed24h) / float64(o.Runs.Last24h) * 100
	}

	var avg *float64
	if err := s.db.Model(&database.PipelineRun{}).
		Joins("JOIN pipelines ON pipelines.id = pipeline_runs.pipeline_id").
		Where("pipelines.organization_id = ? AND pipeline_runs.created_at > ?", orgID, dayAgo).
		Select("AVG(pipeline_runs.duration_seconds)").
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		o.Runs.AvgDuration = *avg
	}

	if err := s.db.Model(&database.Alert{}).
		Where("organization_id = ? AND status = ?", orgID, database.AlertStatusActive).
		Count(&o.Alerts.Active).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&database.Alert{}).
		Where("organization_id = ? AND status = ?", orgID, database.AlertStatusAcknowledged).
		Count(&o.Alerts.Acknowledged).Error; err != nil {
		return nil, err
	}
	o.Alerts.Open = o.Alerts.Active + o.Alerts.Acknowledged
	if err := s.db.Model(&database.Alert{}).
		Where("organization_id = ? AND status IN ? AND severity IN ?", orgID,
			[]database.AlertStatus{database.AlertStatusActive, database.AlertStatusAcknowledged},
			[]database.AlertSeverity{database.SeverityCritical, database.SeverityEmergency}).
		Count(&o.Alerts.Critical).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&database.Alert{}).
		Where("organization_id = ? AND created_at > ?", orgID, dayAgo).
		Count(&o.Alerts.Fired24h).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&database.HealthCheck{}).
		Where("organization_id = ?", orgID).
		Count(&o.HealthChecks.Total).Error; err != nil {
		return nil, err
	}
	// A check is breaching when its most recent result is warning or critical
	if err := s.db.Model(&database.HealthCheck{}).
		Where("organization_id = ?", orgID).
		Where(`(SELECT status FROM health_check_results
			WHERE health_check_results.health_check_id = health_checks.id
			ORDER BY checked_at DESC LIMIT 1) IN ?`,
			[]database.HealthCheckStatus{database.HealthStatusWarning, database.HealthStatusCritical}).
		Count(&o.HealthChecks.Breaching).Error; err != nil {
		return nil, err
	}

	return &o, nil
}

// PipelineHealthEntry is one pipeline's standing in the health summary
type PipelineHealthEntry struct {
	ID               uint                    `json:"id"`
	Name             string                  `json:"name"`
	Type             database.PipelineType   `json:"type"`
	Status           database.PipelineStatus `json:"status"`
	HealthStatus     string                  `json:"health_status"`
	UptimePercentage float64                 `json:"uptime_percentage"`
	LastRunStatus    string                  `json:"last_run_status,omitempty"`
	LastRunAt        *time.Time              `json:"last_run_at,omitempty"`
}

// PipelineHealth is the per-pipeline health summary with aggregate counts
type PipelineHealth struct {
	Pipelines []PipelineHealthEntry `json:"pipelines"`
	Summary   struct {
		Total            int64   `json:"total"`
		Healthy          int64   `json:"healthy"`
		Unhealthy        int64   `json:"unhealthy"`
		HealthPercentage float64 `json:"health_percentage"`
	} `json:"summary"`
}

// GetPipelineHealth reports each pipeline's standing from its most recent
// run: a failed or timed out last run marks the pipeline unhealthy, no runs
// at all leave it unknown. Uptime is the success share over all recorded runs.
func (s *DashboardService) GetPipelineHealth(orgID uint) (*PipelineHealth, error) {
	var pipelines []database.Pipeline
	if err := s.db.Where("organization_id = ?", orgID).
		Order("name ASC").
		Find(&pipelines).Error; err != nil {
		return nil, err
	}

	health := &PipelineHealth{Pipelines: make([]PipelineHealthEntry, 0, len(pipelines))}
	for _, p := range pipelines {
		entry := PipelineHealthEntry{
			ID:           p.ID,
			Name:         p.Name,
			Type:         p.Type,
			Status:       p.Status,
			HealthStatus: "unknown",
		}

		var lastRun database.PipelineRun
		err := s.db.Where("pipeline_id = ?", p.ID).
			Order("created_at DESC").
			First(&lastRun).Error
		switch {
		case err == nil:
			entry.LastRunStatus = string(lastRun.Status)
			entry.LastRunAt = &lastRun.CreatedAt
			if lastRun.Status == database.RunStatusFailed || lastRun.Status == database.RunStatusTimeout {
				entry.HealthStatus = "unhealthy"
			} else {
				entry.HealthStatus = "healthy"
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no runs yet
		default:
			return nil, err
		}

		var total, succeeded int64
		if err := s.db.Model(&database.PipelineRun{}).
			Where("pipeline_id = ?", p.ID).
			Count(&total).Error; err != nil {
			return nil, err
		}
		if total > 0 {
			if err := s.db.Model(&database.PipelineRun{}).
				Where("pipeline_id = ? AND status = ?", p.ID, database.RunStatusSuccess).
				Count(&succeeded).Error; err != nil {
				return nil, err
			}
			entry.UptimePercentage = float64(succeeded) / float64(total) * 100
		}

		health.Pipelines = append(health.Pipelines, entry)
		health.Summary.Total++
		if entry.HealthStatus == "unhealthy" {
			health.Summary.Unhealthy++
		} else {
			health.Summary.Healthy++
		}
	}
	if health.Summary.Total > 0 {
		health.Summary.HealthPercentage = float64(health.Summary.Healthy) / float64(health.Summary.Total) * 100
	}
	return health, nil
}

// DataSourceHealthEntry is one data source's standing in the health summary
type DataSourceHealthEntry struct {
	ID            uint                    `json:"id"`
	Name          string                  `json:"name"`
	Type          database.DataSourceType `json:"type"`
	IsActive      bool                    `json:"is_active"`
	HealthStatus  string                  `json:"health_status"`
	LastCheckedAt *time.Time              `json:"last_checked_at,omitempty"`
}

// DataSourceHealth is the per-source health summary with aggregate counts
type DataSourceHealth struct {
	DataSources []DataSourceHealthEntry `json:"data_sources"`
	Summary     struct {
		Total            int64   `json:"total"`
		Healthy          int64   `json:"healthy"`
		Unhealthy        int64   `json:"unhealthy"`
		HealthPercentage float64 `json:"health_percentage"`
	} `json:"summary"`
}

// GetDataSourceHealth reports each data source's standing from the most
// recent result across its health checks
func (s *DashboardService) GetDataSourceHealth(orgID uint) (*DataSourceHealth, error) {
	var sources []database.DataSource
	if err := s.db.Where("organization_id = ?", orgID).
		Order("name ASC").
		Find(&sources).Error; err != nil {
		return nil, err
	}

	health := &DataSourceHealth{DataSources: make([]DataSourceHealthEntry, 0, len(sources))}
	for _, ds := range sources {
		entry := DataSourceHealthEntry{
			ID:           ds.ID,
			Name:         ds.Name,
			Type:         ds.Type,
			IsActive:     ds.IsActive,
			HealthStatus: "unknown",
		}

		var last database.HealthCheckResult
		err := s.db.
			Joins("JOIN health_checks ON health_checks.id = health_check_results.health_check_id").
			Where("health_checks.data_source_id = ?", ds.ID).
			Order("health_check_results.checked_at DESC").
			First(&last).Error
		switch {
		case err == nil:
			entry.LastCheckedAt = &last.CheckedAt
			if last.Status == database.HealthStatusWarning || last.Status == database.HealthStatusCritical {
				entry.HealthStatus = "unhealthy"
			} else {
				entry.HealthStatus = "healthy"
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// never checked
		default:
			return nil, err
		}

		health.DataSources = append(health.DataSources, entry)
		health.Summary.Total++
		if entry.HealthStatus == "unhealthy" {
			health.Summary.Unhealthy++
		} else {
			health.Summary.Healthy++
		}
	}
	if health.Summary.Total > 0 {
		health.Summary.HealthPercentage = float64(health.Summary.Healthy) / float64(health.Summary.Total) * 100
	}
	return health, nil
}

// RunTrendPoint is one day's pipeline run counts
type RunTrendPoint struct {
	Date        string  `json:"date"`
	TotalRuns   int64   `json:"total_runs"`
	Successful  int64   `json:"successful_runs"`
	Failed      int64   `json:"failed_runs"`
	SuccessRate float64 `json:"success_rate"`
}

// HealthTrendPoint is one day's health check result counts
type HealthTrendPoint struct {
	Date        string  `json:"date"`
	TotalChecks int64   `json:"total_checks"`
	Healthy     int64   `json:"healthy_checks"`
	Warning     int64   `json:"warning_checks"`
	Critical    int64   `json:"critical_checks"`
	HealthRate  float64 `json:"health_rate"`
}

// AlertTrendPoint is one day's fired alert counts
type AlertTrendPoint struct {
	Date        string `json:"date"`
	TotalAlerts int64  `json:"total_alerts"`
	Critical    int64  `json:"critical_alerts"`
	Warning     int64  `json:"warning_alerts"`
}

// MetricsTrend holds the daily series backing the dashboard charts
type MetricsTrend struct {
	PipelineMetrics []RunTrendPoint    `json:"pipeline_metrics"`
	HealthMetrics   []HealthTrendPoint `json:"health_metrics"`
	AlertMetrics    []AlertTrendPoint  `json:"alert_metrics"`
}

// GetMetricsTrend aggregates runs, health results and alerts into daily
// buckets over the trailing window
func (s *DashboardService) GetMetricsTrend(orgID uint, days int) (*MetricsTrend, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	trend := &MetricsTrend{
		PipelineMetrics: []RunTrendPoint{},
		HealthMetrics:   []HealthTrendPoint{},
		AlertMetrics:    []AlertTrendPoint{},
	}

	err := s.db.Model(&database.PipelineRun{}).
		Select(`DATE(pipeline_runs.created_at) AS date,
			COUNT(*) AS total_runs,
			SUM(CASE WHEN pipeline_runs.status = ? THEN 1 ELSE 0 END) AS successful,
			SUM(CASE WHEN pipeline_runs.status IN (?, ?) THEN 1 ELSE 0 END) AS failed`,
			database.RunStatusSuccess, database.RunStatusFailed, database.RunStatusTimeout).
		Joins("JOIN pipelines ON pipelines.id = pipeline_runs.pipeline_id").
		Where("pipelines.organization_id = ? AND pipeline_runs.created_at >= ?", orgID, cutoff).
		Group("DATE(pipeline_runs.created_at)").
		Order("date ASC").
		Scan(&trend.PipelineMetrics).Error
	if err != nil {
		return nil, err
	}
	for i := range trend.PipelineMetrics {
		p := &trend.PipelineMetrics[i]
		if p.TotalRuns > 0 {
			p.SuccessRate = float64(p.Successful) / float64(p.TotalRuns) * 100
		}
	}

	err = s.db.Model(&database.HealthCheckResult{}).
		Select(`DATE(health_check_results.checked_at) AS date,
			COUNT(*) AS total_checks,
			SUM(CASE WHEN health_check_results.status = ? THEN 1 ELSE 0 END) AS healthy,
			SUM(CASE WHEN health_check_results.status = ? THEN 1 ELSE 0 END) AS warning,
			SUM(CASE WHEN health_check_results.status = ? THEN 1 ELSE 0 END) AS critical`,
			database.HealthStatusHealthy, database.HealthStatusWarning, database.HealthStatusCritical).
		Joins("JOIN health_checks ON health_checks.id = health_check_results.health_check_id").
		Where("health_checks.organization_id = ? AND health_check_results.checked_at >= ?", orgID, cutoff).
		Group("DATE(health_check_results.checked_at)").
		Order("date ASC").
		Scan(&trend.HealthMetrics).Error
	if err != nil {
		return nil, err
	}
	for i := range trend.HealthMetrics {
		h := &trend.HealthMetrics[i]
		if h.TotalChecks > 0 {
			h.HealthRate = float64(h.Healthy) / float64(h.TotalChecks) * 100
		}
	}

	err = s.db.Model(&database.Alert{}).
		Select(`DATE(created_at) AS date,
			COUNT(*) AS total_alerts,
			SUM(CASE WHEN severity IN (?, ?) THEN 1 ELSE 0 END) AS critical,
			SUM(CASE WHEN severity = ? THEN 1 ELSE 0 END) AS warning`,
			database.SeverityCritical, database.SeverityEmergency, database.SeverityWarning).
		Where("organization_id = ? AND created_at >= ?", orgID, cutoff).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&trend.AlertMetrics).Error
	if err != nil {
		return nil, err
	}
	return trend, nil
}

// TopPipelineEntry ranks one pipeline by its run outcomes in the window
type TopPipelineEntry struct {
	PipelineID   uint    `json:"pipeline_id"`
	PipelineName string  `json:"pipeline_name"`
	TotalRuns    int64   `json:"total_runs"`
	Successful   int64   `json:"successful_runs"`
	Failed       int64   `json:"failed_runs"`
	SuccessRate  float64 `json:"success_rate"`
}

// TopPipelines lists the best and worst performing pipelines
type TopPipelines struct {
	TopPerformers []TopPipelineEntry `json:"top_performers"`
	Problematic   []TopPipelineEntry `json:"problematic"`
}

// minRunsForRanking keeps pipelines with too few runs out of the ranking
const minRunsForRanking = 5

// GetTopPipelines ranks pipelines by successes and by failures over the
// trailing window. Pipelines with fewer than five runs are left out.
func (s *DashboardService) GetTopPipelines(orgID uint, days int) (*TopPipelines, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	base := func() *gorm.DB {
		return s.db.Model(&database.PipelineRun{}).
			Select(`pipelines.id AS pipeline_id,
				pipelines.name AS pipeline_name,
				COUNT(*) AS total_runs,
				SUM(CASE WHEN pipeline_runs.status = ? THEN 1 ELSE 0 END) AS successful,
				SUM(CASE WHEN pipeline_runs.status IN (?, ?) THEN 1 ELSE 0 END) AS failed`,
				database.RunStatusSuccess, database.RunStatusFailed, database.RunStatusTimeout).
			Joins("JOIN pipelines ON pipelines.id = pipeline_runs.pipeline_id").
			Where("pipelines.organization_id = ? AND pipeline_runs.created_at >= ?", orgID, cutoff).
			Group("pipelines.id, pipelines.name").
			Having("COUNT(*) >= ?", minRunsForRanking).
			Limit(5)
	}

	top := &TopPipelines{
		TopPerformers: []TopPipelineEntry{},
		Problematic:   []TopPipelineEntry{},
	}
	if err := base().Order("successful DESC").Scan(&top.TopPerformers).Error; err != nil {
		return nil, err
	}
	if err := base().Order("failed DESC").Scan(&top.Problematic).Error; err != nil {
		return nil, err
	}
	for _, list := range [][]TopPipelineEntry{top.TopPerformers, top.Problematic} {
		for i := range list {
			if list[i].TotalRuns > 0 {
				list[i].SuccessRate = float64(list[i].Successful) / float64(list[i].TotalRuns) * 100
			}
		}
	}
	return top, nil
}

// RecentActivity is a merged feed of the latest runs, check results and alerts
type RecentActivity struct {
	Runs    []database.PipelineRun       `json:"runs"`
	Results []database.HealthCheckResult `json:"results"`
	Alerts  []database.Alert             `json:"alerts"`
}

// GetRecentActivity returns the tenant's latest runs, results and alerts
func (s *DashboardService) GetRecentActivity(orgID uint, limit int) (*RecentActivity, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var activity RecentActivity
	err := s.db.
		Joins("JOIN pipelines ON pipelines.id = pipeline_runs.pipeline_id").
		Where("pipelines.organization_id = ?", orgID).
		Order("pipeline_runs.created_at DESC").
		Limit(limit).
		Find(&activity.Runs).Error
	if err != nil {
		return nil, err
	}

	err = s.db.
		Joins("JOIN health_checks ON health_checks.id = health_check_results.health_check_id").
		Where("health_checks.organization_id = ?", orgID).
		Order("health_check_results.checked_at DESC").
		Limit(limit).
		Find(&activity.Results).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activity.Alerts).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// Package jobs contains the background loops that run alongside the API
// server.
package jobs

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/database"
)

// EscalationJob promotes active alerts that nobody has acknowledged within
// their rule's escalation window. Escalation notifies the rule's escalation
// recipients and leaves an audit trail; an alert is escalated at most once.
type EscalationJob struct {
	db       *gorm.DB
	recorder *alerts.Recorder
	clock    func() time.Time
}

// NewEscalationJob creates a new escalation job
func NewEscalationJob(db *gorm.DB) *EscalationJob {
	return &EscalationJob{
		db:       db,
		recorder: alerts.NewRecorder(db),
		clock:    time.Now,
	}
}

// SetClock replaces the job's time source
func (j *EscalationJob) SetClock(clock func() time.Time) {
	j.clock = clock
}

// Run scans for overdue active alerts and escalates them, returning the
// number escalated. Per-alert failures are logged and skipped so one bad
// row cannot stall the sweep.
func (j *EscalationJob) Run() (int, error) {
	now := j.clock()

	var candidates []database.Alert
	err := j.db.
		Joins("JOIN alert_rules ON alert_rules.id = alerts.alert_rule_id").
		Where("alerts.status = ?", database.AlertStatusActive).
		Where("alert_rules.escalation_enabled = ?", true).
		Where("alerts.created_at <= ?", now).
		Preload("AlertRule").
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	escalated := 0
	for i := range candidates {
		alert := &candidates[i]
		rule := alert.AlertRule

		delay := time.Duration(rule.EscalationDelayMinutes) * time.Minute
		if now.Sub(alert.CreatedAt) < delay {
			continue
		}

		already, err := j.alreadyEscalated(alert.ID)
		if err != nil {
			log.Printf("Escalation check failed for alert %d: %v", alert.ID, err)
			continue
		}
		if already {
			continue
		}

		if err := j.escalate(alert, &rule, now); err != nil {
			log.Printf("Failed to escalate alert %d: %v", alert.ID, err)
			continue
		}
		escalated++
		log.Printf("Escalated alert %d (rule %q) after %d minutes unacknowledged",
			alert.ID, rule.Name, rule.EscalationDelayMinutes)
	}

	return escalated, nil
}

// alreadyEscalated reports whether the alert carries an escalation entry
func (j *EscalationJob) alreadyEscalated(alertID uint) (bool, error) {
	var count int64
	err := j.db.Model(&database.AlertHistory{}).
		Where("alert_id = ? AND action = ?", alertID, alerts.ActionEscalated).
		Count(&count).Error
	return count > 0, err
}

func (j *EscalationJob) escalate(alert *database.Alert, rule *database.AlertRule, now time.Time) error {
	desc := fmt.Sprintf("escalated after %d minutes without acknowledgement", rule.EscalationDelayMinutes)
	if err := j.recorder.Record(alert.ID, alerts.ActionEscalated, desc, "escalation-job"); err != nil {
		return err
	}

	channels := []string(rule.Channels)
	if len(channels) == 0 {
		channels = []string{string(database.ChannelInApp)}
	}

	// Notification delivery is recorded per recipient. Failed deliveries
	// get their own entry; they do not undo the escalation itself.
	for _, recipient := range rule.EscalationRecipients {
		for _, channel := range channels {
			if err := j.recorder.RecordNotification(alert.ID, channel, recipient, now, true, ""); err != nil {
				log.Printf("Failed to record escalation notification for alert %d: %v", alert.ID, err)
			}
		}
	}
	return nil
}

// Start begins the periodic escalation sweep
func (j *EscalationJob) Start(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			escalated, err := j.Run()
			if err != nil {
				log.Printf("Escalation job error: %v", err)
			} else if escalated > 0 {
				log.Printf("Escalation job: escalated %d alerts", escalated)
			}
		case <-stop:
			log.Println("Escalation job stopped")
			return
		}
	}
}

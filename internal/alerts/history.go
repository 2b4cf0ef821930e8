package alerts

import (
	"time"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/database"
)

// History actions recorded by the engine and jobs
const (
	ActionCreated          = "created"
	ActionAcknowledged     = "acknowledged"
	ActionResolved         = "resolved"
	ActionEscalated        = "escalated"
	ActionNotificationSent = "notification_sent"
)

// Recorder appends entries to the alert history log. The log is append-only:
// there is no update or delete path, corrections are new entries.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder creates a recorder writing through the given database handle
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends a lifecycle entry for an alert
func (r *Recorder) Record(alertID uint, action, description, actor string) error {
	entry := database.AlertHistory{
		AlertID:     alertID,
		Action:      action,
		Description: description,
		CreatedBy:   actor,
		Success:     true,
	}
	return wrapPersistence("record alert history", r.db.Create(&entry).Error)
}

// RecordNotification appends a delivery-attempt entry for an alert.
// Failed attempts are recorded with success=false and the error message;
// they never abort the surrounding operation.
func (r *Recorder) RecordNotification(alertID uint, channel, recipient string, sentAt time.Time, success bool, errMsg string) error {
	entry := database.AlertHistory{
		AlertID:      alertID,
		Action:       ActionNotificationSent,
		Description:  "notification attempt via " + channel,
		Channel:      channel,
		Recipient:    recipient,
		SentAt:       &sentAt,
		Success:      success,
		ErrorMessage: errMsg,
	}
	return wrapPersistence("record notification history", r.db.Create(&entry).Error)
}

// ListForAlert returns an alert's history, newest first
func (r *Recorder) ListForAlert(alertID uint) ([]database.AlertHistory, error) {
	var entries []database.AlertHistory
	err := r.db.Where("alert_id = ?", alertID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, wrapPersistence("list alert history", err)
	}
	return entries, nil
}

// appendHistory writes a history row inside an existing transaction
func appendHistory(tx *gorm.DB, entry *database.AlertHistory) error {
	return tx.Create(entry).Error
}

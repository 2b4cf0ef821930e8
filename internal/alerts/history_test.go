package alerts

import (
	"testing"
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

func TestRecordNotification_FailedDeliveryKeepsSuccessFalse(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder(db)

	sentAt := time.Now()
	if err := rec.RecordNotification(1, "email", "oncall@example.com", sentAt, false, "smtp timeout"); err != nil {
		t.Fatalf("RecordNotification: %v", err)
	}

	var entry database.AlertHistory
	if err := db.Where("alert_id = ? AND action = ?", 1, ActionNotificationSent).
		First(&entry).Error; err != nil {
		t.Fatalf("read back history: %v", err)
	}
	if entry.Success {
		t.Error("failed delivery stored with success=true")
	}
	if entry.ErrorMessage != "smtp timeout" {
		t.Errorf("ErrorMessage = %q, want the delivery error", entry.ErrorMessage)
	}
	if entry.Channel != "email" || entry.Recipient != "oncall@example.com" {
		t.Errorf("channel/recipient = %q/%q", entry.Channel, entry.Recipient)
	}
}

func TestRecordNotification_SuccessfulDelivery(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder(db)

	if err := rec.RecordNotification(1, "in_app", "jordan", time.Now(), true, ""); err != nil {
		t.Fatalf("RecordNotification: %v", err)
	}

	var entry database.AlertHistory
	if err := db.Where("alert_id = ?", 1).First(&entry).Error; err != nil {
		t.Fatalf("read back history: %v", err)
	}
	if !entry.Success {
		t.Error("successful delivery stored with success=false")
	}
	if entry.ErrorMessage != "" {
		t.Errorf("unexpected ErrorMessage %q", entry.ErrorMessage)
	}
}

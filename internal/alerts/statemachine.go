package alerts

import (
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

// Acknowledge transitions an alert from active to acknowledged, stamping
// actor and time. Any other starting status is an InvalidStateError and the
// alert is left untouched.
func Acknowledge(alert *database.Alert, actor string, now time.Time) error {
	if alert.Status != database.AlertStatusActive {
		return &InvalidStateError{Action: "acknowledge", From: string(alert.Status)}
	}
	alert.Status = database.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = actor
	return nil
}

// Resolve transitions an alert to resolved from active or acknowledged.
// Resolved is terminal; resolving a resolved or suppressed alert is an
// InvalidStateError and the alert is left untouched.
func Resolve(alert *database.Alert, actor string, now time.Time) error {
	if alert.Status != database.AlertStatusActive && alert.Status != database.AlertStatusAcknowledged {
		return &InvalidStateError{Action: "resolve", From: string(alert.Status)}
	}
	alert.Status = database.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.ResolvedBy = actor
	return nil
}

// DurationMinutes returns how long the alert has been (or was) open, in
// fractional minutes. Resolved alerts measure to resolution, acknowledged
// alerts to acknowledgement, open alerts to now.
func DurationMinutes(alert *database.Alert, now time.Time) float64 {
	end := now
	switch {
	case alert.ResolvedAt != nil:
		end = *alert.ResolvedAt
	case alert.AcknowledgedAt != nil:
		end = *alert.AcknowledgedAt
	}
	return end.Sub(alert.CreatedAt).Minutes()
}

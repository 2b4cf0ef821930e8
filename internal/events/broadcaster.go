// Package events fans out fired alerts to in-process subscribers, e.g.
// websocket stream handlers.
package events

import (
	"sync"
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

// AlertEvent is the wire form pushed to stream subscribers
type AlertEvent struct {
	Type           string                 `json:"type"`
	AlertID        uint                   `json:"alert_id"`
	AlertRuleID    uint                   `json:"alert_rule_id"`
	OrganizationID uint                   `json:"organization_id"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Severity       database.AlertSeverity `json:"severity"`
	Status         database.AlertStatus   `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Broadcaster delivers alert events to subscribers. Slow subscribers are
// skipped rather than blocking the engine.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan AlertEvent]uint // channel -> organization filter
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan AlertEvent]uint)}
}

// Subscribe registers a buffered event channel scoped to one organization.
// The returned cancel function removes the subscription and closes the
// channel.
func (b *Broadcaster) Subscribe(orgID uint) (<-chan AlertEvent, func()) {
	ch := make(chan AlertEvent, 16)

	b.mu.Lock()
	b.subs[ch] = orgID
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount returns the number of live subscriptions
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// PublishAlert implements alerts.Publisher. Events are delivered only to
// subscribers of the alert's organization.
func (b *Broadcaster) PublishAlert(alert *database.Alert) {
	event := AlertEvent{
		Type:           "alert_fired",
		AlertID:        alert.ID,
		AlertRuleID:    alert.AlertRuleID,
		OrganizationID: alert.OrganizationID,
		Title:          alert.Title,
		Message:        alert.Message,
		Severity:       alert.Severity,
		Status:         alert.Status,
		CreatedAt:      alert.CreatedAt,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, orgID := range b.subs {
		if orgID != alert.OrganizationID {
			continue
		}
		select {
		case ch <- event:
		default:
			// subscriber buffer full, drop the event for this client
		}
	}
}

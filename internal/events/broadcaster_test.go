package events

import (
	"testing"
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

func TestBroadcaster_DeliversToMatchingOrg(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.PublishAlert(&database.Alert{ID: 10, OrganizationID: 1, Severity: database.SeverityCritical})

	select {
	case ev := <-ch:
		if ev.AlertID != 10 || ev.Type != "alert_fired" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroadcaster_FiltersByOrganization(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(2)
	defer cancel()

	b.PublishAlert(&database.Alert{ID: 11, OrganizationID: 1})

	select {
	case ev := <-ch:
		t.Errorf("event leaked across tenants: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_CancelIsIdempotent(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe(1)
	cancel()
	cancel() // must not panic

	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe(1) // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.PublishAlert(&database.Alert{ID: uint(i), OrganizationID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

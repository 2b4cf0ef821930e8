package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestAlertStreamDeliversFiredAlerts(t *testing.T) {
	a := setupTestAPI(t)
	token := a.register(t, "acme")

	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	// Browsers cannot set headers on websocket dials, so the token rides
	// in the query string.
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/alerts/stream?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial alert stream: %v (resp=%v)", err, resp)
	}
	defer conn.Close()

	// The subscription is registered by the handler goroutine after the
	// upgrade; wait for it before firing.
	deadline := time.Now().Add(2 * time.Second)
	for a.broadcaster.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream handler never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := a.do(t, http.MethodPost, "/api/pipelines", token, map[string]interface{}{
		"name": "billing-export",
		"type": "cron",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pipeline returned %d: %s", rec.Code, rec.Body.String())
	}
	var pipeline struct {
		ID uint `json:"id"`
	}
	decodeBody(t, rec, &pipeline)

	rec = a.do(t, http.MethodPost, "/api/alerts/rules", token, map[string]interface{}{
		"name":       "export failures",
		"rule_type":  "pipeline_failure",
		"severity":   "critical",
		"conditions": map[string]interface{}{"failure_count": 1},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/pipelines/%d/runs", pipeline.ID), token, map[string]interface{}{
		"status": "failed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record run returned %d: %s", rec.Code, rec.Body.String())
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event struct {
		Type     string `json:"type"`
		Severity string `json:"severity"`
		Title    string `json:"title"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read stream event: %v", err)
	}
	if event.Type != "alert_fired" {
		t.Errorf("expected alert_fired event, got %q", event.Type)
	}
	if event.Severity != "critical" {
		t.Errorf("expected critical severity, got %q", event.Severity)
	}
	if event.Title != "Alert: export failures" {
		t.Errorf("unexpected event title %q", event.Title)
	}
}

func TestAlertStreamRejectsMissingToken(t *testing.T) {
	a := setupTestAPI(t)

	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/alerts/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

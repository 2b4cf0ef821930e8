package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pipewatch/pipewatch/internal/metrics"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens in the JWT middleware; browser clients pass the
		// token as a query parameter.
		return true
	},
}

// handleAlertStream handles GET /api/alerts/stream. It upgrades the
// connection to a websocket and pushes alert_fired events for the caller's
// organization until the client disconnects.
func (h *APIHandler) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade alert stream: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.broadcaster.Subscribe(claims.OrganizationID)
	defer cancel()

	metrics.ConnectedStreamClients.Inc()
	defer metrics.ConnectedStreamClients.Dec()

	log.Printf("Alert stream connected: org=%d user=%s remote=%s",
		claims.OrganizationID, claims.Username, r.RemoteAddr)

	// Read pump. Clients never send data; this only surfaces the close
	// frame so the write loop can stop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("Alert stream read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("Alert stream write error: %v", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

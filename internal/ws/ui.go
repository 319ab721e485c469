package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/agent-relay/afk/internal/model"
)

// HandleUI upgrades a dashboard connection, sends it a snapshot of
// pending sessions and serves respond/dismiss requests until it drops.
func (h *Hub) HandleUI(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[UI] Failed to upgrade connection: %v", err)
		return
	}

	ui := &uiConn{conn: conn}
	h.mu.Lock()
	h.uis[ui] = struct{}{}
	total := len(h.uis)
	h.mu.Unlock()
	log.Printf("[UI] Connected. Total UI connections: %d", total)

	sessions, err := h.repo.List(context.Background(), model.SessionStatusPending)
	if err != nil {
		log.Printf("[UI] Failed to load pending sessions for snapshot: %v", err)
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	if err := ui.writeJSON(&Message{Type: MessageTypeInit, Sessions: sessions}); err != nil {
		h.removeUI(ui)
		conn.Close()
		return
	}

	defer func() {
		h.removeUI(ui)
		conn.Close()
		log.Printf("[UI] Disconnected. Total UI connections: %d", h.UICount())
	}()

	stop := make(chan struct{})
	defer close(stop)
	go h.keepalive(ui.writeJSON, conn, stop)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(idleWait))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(idleWait))

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(ui, "invalid message")
			continue
		}
		switch msg.Type {
		case MessageTypePing:
			ui.writeJSON(&Message{Type: MessageTypePong})
		case MessageTypePong:
			// keepalive answered
		case MessageTypeRespond:
			if msg.SessionID == "" || msg.Response == nil {
				h.sendError(ui, "respond requires session_id and response")
				continue
			}
			h.Respond(ui, msg.SessionID, *msg.Response)
		case MessageTypeDismiss:
			if msg.SessionID == "" {
				h.sendError(ui, "dismiss requires session_id")
				continue
			}
			h.Dismiss(ui, msg.SessionID)
		default:
			h.sendError(ui, "unexpected message type")
		}
	}
}

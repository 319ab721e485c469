package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agent-relay/afk/internal/model"
)

// HandleHook upgrades an agent connection, registers its session and
// keeps the connection alive until a terminal transition or the agent
// falls silent.
func (h *Hub) HandleHook(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hook] Failed to upgrade connection: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(registerWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		log.Printf("[Hook] No registration frame received: %v", err)
		conn.Close()
		return
	}

	var payload model.RegisterPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.rejectHook(conn, "invalid registration payload")
		return
	}
	if err := payload.Validate(); err != nil {
		h.rejectHook(conn, err.Error())
		return
	}

	session := model.NewSession(uuid.NewString(), &payload)
	if err := h.repo.Create(context.Background(), session); err != nil {
		log.Printf("[Hook] Failed to store session: %v", err)
		h.rejectHook(conn, "failed to create session")
		return
	}
	log.Printf("[Hook] Registered session %s for %s/%s", session.ID, session.MachineName, session.ProjectName)

	hc := &hookConn{sessionID: session.ID, conn: conn}
	h.mu.Lock()
	h.hooks[session.ID] = hc
	h.mu.Unlock()

	// Notification delivery must never hold up the pairing flow.
	go h.notifier.Notify(context.Background(), session)
	h.broadcast(&Message{Type: MessageTypeNewSession, Session: session})

	if err := hc.writeJSON(&Message{Type: MessageTypeRegistered, SessionID: session.ID}); err != nil {
		h.teardownHook(hc)
		return
	}

	h.hookReadLoop(hc)
}

func (h *Hub) rejectHook(conn *websocket.Conn, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(&Message{Type: MessageTypeError, Message: reason})
	conn.Close()
}

func (h *Hub) hookReadLoop(hc *hookConn) {
	defer h.teardownHook(hc)

	stop := make(chan struct{})
	defer close(stop)
	go h.keepalive(hc.writeJSON, hc.conn, stop)

	hc.conn.SetReadDeadline(time.Now().Add(idleWait))
	for {
		_, raw, err := hc.conn.ReadMessage()
		if err != nil {
			return
		}
		hc.conn.SetReadDeadline(time.Now().Add(idleWait))

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[Hook] Malformed message on session %s: %v", hc.sessionID, err)
			continue
		}
		switch msg.Type {
		case MessageTypePing:
			hc.writeJSON(&Message{Type: MessageTypePong})
		case MessageTypePong:
			// keepalive answered
		default:
			hc.writeJSON(&Message{Type: MessageTypeError, Message: "unexpected message type"})
		}
	}
}

// teardownHook closes the agent connection. If its session is still
// pending the agent vanished without an answer, which is itself a
// terminal transition.
func (h *Hub) teardownHook(hc *hookConn) {
	hc.stateMu.Lock()
	alreadyFinal := hc.finalized
	if !alreadyFinal {
		hc.finalized = true
		h.removeHook(hc.sessionID, hc)
	}
	hc.stateMu.Unlock()
	hc.conn.Close()

	if alreadyFinal {
		return
	}
	if err := h.repo.UpdateStatus(context.Background(), hc.sessionID, model.SessionStatusDisconnected, nil); err != nil {
		log.Printf("[Hub] Failed to persist disconnect for session %s: %v", hc.sessionID, err)
	}
	log.Printf("[Hook] Session %s disconnected while pending", hc.sessionID)
	h.broadcast(&Message{Type: MessageTypeSessionDisconnected, SessionID: hc.sessionID})
}

// keepalive sends application-level pings on a fixed interval until the
// stop channel closes or a write fails.
func (h *Hub) keepalive(write func(*Message) error, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := write(&Message{Type: MessageTypePing}); err != nil {
				conn.Close()
				return
			}
		}
	}
}

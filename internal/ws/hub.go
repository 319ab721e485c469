package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agent-relay/afk/internal/model"
	"github.com/agent-relay/afk/internal/notify"
	"github.com/agent-relay/afk/internal/repository"
)

const (
	// Time allowed to write a message to a peer.
	writeWait = 10 * time.Second

	// Time allowed for an agent to send its registration frame after
	// the WebSocket upgrade.
	registerWait = 15 * time.Second

	// A connection with no inbound traffic for this long is considered
	// dead. Must comfortably exceed pingPeriod so a healthy peer always
	// gets a chance to answer a ping before the cutoff.
	idleWait = 90 * time.Second

	// Interval between keepalive pings sent to each peer.
	pingPeriod = 30 * time.Second

	maxMessageSize = 64 * 1024
)

// hookConn is a single agent's connection. It exists in the hub's
// registry only while its session is pending; the first terminal
// transition removes it.
type hookConn struct {
	sessionID string
	conn      *websocket.Conn

	writeMu sync.Mutex

	// stateMu serializes terminal transitions for this session.
	stateMu   sync.Mutex
	finalized bool
}

func (c *hookConn) writeJSON(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// uiConn is a single operator dashboard connection.
type uiConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *uiConn) writeJSON(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Hub pairs blocked agents with operator dashboards. Each agent
// connection carries exactly one pending session; every dashboard
// connection observes all of them.
type Hub struct {
	repo     *repository.SessionRepository
	notifier notify.Notifier
	upgrader websocket.Upgrader

	mu    sync.Mutex
	hooks map[string]*hookConn
	uis   map[*uiConn]struct{}
}

// NewHub creates a hub backed by the given repository and notifier.
func NewHub(repo *repository.SessionRepository, notifier notify.Notifier) *Hub {
	return &Hub{
		repo:     repo,
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		hooks: make(map[string]*hookConn),
		uis:   make(map[*uiConn]struct{}),
	}
}

// HookCount returns the number of live agent connections.
func (h *Hub) HookCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// UICount returns the number of live dashboard connections.
func (h *Hub) UICount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.uis)
}

// HookSessionIDs returns the session ids with a live agent connection.
func (h *Hub) HookSessionIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.hooks))
	for id := range h.hooks {
		ids = append(ids, id)
	}
	return ids
}

// removeHook deletes the registry entry for sessionID if it still
// points at hc. A stale entry from a reconnect race is left alone.
func (h *Hub) removeHook(sessionID string, hc *hookConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hooks[sessionID] == hc {
		delete(h.hooks, sessionID)
	}
}

func (h *Hub) removeUI(ui *uiConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.uis, ui)
}

// broadcast fans a message out to every dashboard connection. Failed
// peers are collected and pruned after the pass so one dead connection
// cannot starve the rest.
func (h *Hub) broadcast(msg *Message) {
	h.mu.Lock()
	targets := make([]*uiConn, 0, len(h.uis))
	for ui := range h.uis {
		targets = append(targets, ui)
	}
	h.mu.Unlock()

	var failed []*uiConn
	for _, ui := range targets {
		if err := ui.writeJSON(msg); err != nil {
			failed = append(failed, ui)
		}
	}
	for _, ui := range failed {
		h.removeUI(ui)
		ui.conn.Close()
	}
	if len(failed) > 0 {
		log.Printf("[Hub] Pruned %d dead UI connection(s) during broadcast", len(failed))
	}
}

func (h *Hub) sendError(ui *uiConn, text string) {
	ui.writeJSON(&Message{Type: MessageTypeError, Message: text})
}

// Respond delivers an operator's reply to the waiting agent. Delivery
// comes before the state transition: if the write to the agent fails,
// the session stays pending and another operator may retry. At most one
// response is ever delivered per session.
func (h *Hub) Respond(requester *uiConn, sessionID, response string) {
	h.mu.Lock()
	hc := h.hooks[sessionID]
	h.mu.Unlock()

	if hc == nil {
		h.sendError(requester, model.ErrNoHookConnection.Error())
		return
	}

	hc.stateMu.Lock()
	if hc.finalized {
		hc.stateMu.Unlock()
		h.sendError(requester, model.ErrSessionTerminal.Error())
		return
	}
	if err := hc.writeJSON(&Message{Type: MessageTypeResponse, Response: &response}); err != nil {
		hc.stateMu.Unlock()
		log.Printf("[Hub] Failed to deliver response for session %s: %v", sessionID, err)
		h.sendError(requester, "failed to deliver response to agent")
		return
	}
	hc.finalized = true
	h.removeHook(sessionID, hc)
	hc.stateMu.Unlock()

	if err := h.repo.UpdateStatus(context.Background(), sessionID, model.SessionStatusResponded, &response); err != nil {
		log.Printf("[Hub] Failed to persist response for session %s: %v", sessionID, err)
	}
	log.Printf("[Hub] Session %s responded", sessionID)
	h.broadcast(&Message{Type: MessageTypeSessionResponded, SessionID: sessionID, Response: &response})
}

// Dismiss abandons a pending session without answering the agent. With
// a live agent connection the connection is closed; without one the
// stored session is transitioned if it is still pending. Dismissing an
// already-terminal session is an idempotent no-op acknowledged only to
// the requester.
func (h *Hub) Dismiss(requester *uiConn, sessionID string) {
	h.mu.Lock()
	hc := h.hooks[sessionID]
	h.mu.Unlock()

	if hc != nil {
		hc.stateMu.Lock()
		if hc.finalized {
			hc.stateMu.Unlock()
			requester.writeJSON(&Message{Type: MessageTypeSessionDismissed, SessionID: sessionID})
			return
		}
		hc.finalized = true
		h.removeHook(sessionID, hc)
		hc.stateMu.Unlock()
		hc.conn.Close()
		h.finishDismiss(sessionID)
		return
	}

	sess, err := h.repo.GetByID(context.Background(), sessionID)
	if err != nil {
		h.sendError(requester, model.ErrSessionNotFound.Error())
		return
	}
	if sess.Status.Terminal() {
		requester.writeJSON(&Message{Type: MessageTypeSessionDismissed, SessionID: sessionID})
		return
	}
	h.finishDismiss(sessionID)
}

func (h *Hub) finishDismiss(sessionID string) {
	if err := h.repo.UpdateStatus(context.Background(), sessionID, model.SessionStatusDisconnected, nil); err != nil {
		log.Printf("[Hub] Failed to persist dismissal for session %s: %v", sessionID, err)
	}
	log.Printf("[Hub] Session %s dismissed", sessionID)
	h.broadcast(&Message{Type: MessageTypeSessionDismissed, SessionID: sessionID})
}

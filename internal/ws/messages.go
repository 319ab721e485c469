package ws

import "github.com/agent-relay/afk/internal/model"

// MessageType represents the type of WebSocket message.
type MessageType string

const (
	// Hub -> Agent message types
	MessageTypeRegistered MessageType = "registered"
	MessageTypeResponse   MessageType = "response"

	// UI -> Hub message types
	MessageTypeRespond MessageType = "respond"
	MessageTypeDismiss MessageType = "dismiss"

	// Hub -> UI message types
	MessageTypeInit                MessageType = "init"
	MessageTypeNewSession          MessageType = "new_session"
	MessageTypeSessionResponded    MessageType = "session_responded"
	MessageTypeSessionDismissed    MessageType = "session_dismissed"
	MessageTypeSessionDisconnected MessageType = "session_disconnected"

	// Bidirectional message types
	MessageTypePing  MessageType = "ping"
	MessageTypePong  MessageType = "pong"
	MessageTypeError MessageType = "error"
)

// Message represents a WebSocket message on either connection class.
// Response is a pointer because an empty operator reply is meaningful
// (it translates to a bare Enter keypress).
type Message struct {
	Type      MessageType      `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Response  *string          `json:"response,omitempty"`
	Session   *model.Session   `json:"session,omitempty"`
	Sessions  []*model.Session `json:"sessions,omitempty"`
	Message   string           `json:"message,omitempty"`
}

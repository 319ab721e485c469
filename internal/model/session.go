package model

import "time"

// SessionStatus represents the lifecycle state of a relay session.
type SessionStatus string

const (
	SessionStatusPending      SessionStatus = "pending"
	SessionStatusResponded    SessionStatus = "responded"
	SessionStatusTimeout      SessionStatus = "timeout"
	SessionStatusDisconnected SessionStatus = "disconnected"
)

// Terminal reports whether the status is final. The hub only produces
// responded and disconnected; timeout exists in the schema because the
// agent side enforces its own deadline and never reports it back.
func (s SessionStatus) Terminal() bool {
	return s != SessionStatusPending
}

// NotificationTypePermissionPrompt marks sessions created for a menu-style
// permission prompt; any other value is treated as free-form text input.
const NotificationTypePermissionPrompt = "permission_prompt"

// Session represents one pending-approval exchange between an agent and
// any number of operators.
type Session struct {
	ID               string        `json:"id"`
	InstanceID       string        `json:"instance_id"`
	MachineName      string        `json:"machine_name"`
	ProjectName      string        `json:"project_name"`
	WorkingDir       string        `json:"working_dir"`
	Notification     string        `json:"notification"`
	NotificationType string        `json:"notification_type"`
	ContextTail      string        `json:"context_tail,omitempty"`
	CanInject        bool          `json:"can_inject"`
	Status           SessionStatus `json:"status"`
	Response         *string       `json:"response,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	RespondedAt      *time.Time    `json:"responded_at,omitempty"`
}

// RegisterPayload is the first frame an agent connection sends to the hub.
type RegisterPayload struct {
	InstanceID       string `json:"instance_id"`
	MachineName      string `json:"machine_name"`
	ProjectName      string `json:"project_name"`
	WorkingDir       string `json:"working_dir"`
	Notification     string `json:"notification"`
	NotificationType string `json:"notification_type"`
	ContextTail      string `json:"context_tail,omitempty"`
	CanInject        bool   `json:"can_inject"`
}

// Validate validates the registration payload.
func (p *RegisterPayload) Validate() error {
	if p.InstanceID == "" {
		return ErrInstanceIDRequired
	}
	if p.Notification == "" {
		return ErrNotificationRequired
	}
	return nil
}

// NewSession builds a pending session from a registration payload.
// The caller supplies the hub-generated id.
func NewSession(id string, p *RegisterPayload) *Session {
	notificationType := p.NotificationType
	if notificationType == "" {
		notificationType = NotificationTypePermissionPrompt
	}
	return &Session{
		ID:               id,
		InstanceID:       p.InstanceID,
		MachineName:      p.MachineName,
		ProjectName:      p.ProjectName,
		WorkingDir:       p.WorkingDir,
		Notification:     p.Notification,
		NotificationType: notificationType,
		ContextTail:      p.ContextTail,
		CanInject:        p.CanInject,
		Status:           SessionStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
}

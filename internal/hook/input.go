package hook

import (
	"encoding/json"
	"io"

	"github.com/agent-relay/afk/internal/model"
)

// Input is the event the agent runtime pipes to the hook on stdin.
type Input struct {
	Message          string `json:"message"`
	NotificationType string `json:"notification_type"`
	Context          string `json:"context"`
}

// ReadInput decodes a hook event from r. Unknown fields are ignored;
// an empty notification type defaults to a permission prompt.
func ReadInput(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, err
	}
	if in.NotificationType == "" {
		in.NotificationType = model.NotificationTypePermissionPrompt
	}
	return &in, nil
}

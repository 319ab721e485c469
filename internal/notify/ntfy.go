// Package notify pushes new-session alerts to operator phones via an
// ntfy topic. Delivery is best effort; a failed push never blocks or
// fails the pairing flow.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agent-relay/afk/internal/model"
)

const (
	defaultNtfyServer = "https://ntfy.sh"
	requestTimeout    = 10 * time.Second
	previewLines      = 3
	previewMaxLen     = 200
)

// Notifier announces a newly registered session.
type Notifier interface {
	Notify(ctx context.Context, session *model.Session)
}

// Noop is a Notifier that does nothing, used when no topic is
// configured.
type Noop struct{}

func (Noop) Notify(context.Context, *model.Session) {}

// NtfyNotifier publishes to an ntfy server topic.
type NtfyNotifier struct {
	server  string
	topic   string
	baseURL string
	client  *http.Client
}

// NewNtfy creates a notifier for the given topic. server falls back to
// the public ntfy.sh instance; baseURL is the dashboard address used
// for the click-through action and may be empty.
func NewNtfy(server, topic, baseURL string) *NtfyNotifier {
	if server == "" {
		server = defaultNtfyServer
	}
	return &NtfyNotifier{
		server:  strings.TrimRight(server, "/"),
		topic:   topic,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type ntfyAction struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	URL    string `json:"url"`
}

type ntfyMessage struct {
	Topic    string       `json:"topic"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Priority int          `json:"priority"`
	Tags     []string     `json:"tags"`
	Click    string       `json:"click,omitempty"`
	Actions  []ntfyAction `json:"actions,omitempty"`
}

// Notify publishes an alert for the session. Errors are logged, never
// returned.
func (n *NtfyNotifier) Notify(ctx context.Context, session *model.Session) {
	msg := n.build(session)
	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[NTFY] Failed to encode notification: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.server, bytes.NewReader(body))
	if err != nil {
		log.Printf("[NTFY] Failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("[NTFY] Push failed for session %s: %v", session.ID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[NTFY] Push for session %s returned %d", session.ID, resp.StatusCode)
		return
	}
	log.Printf("[NTFY] Pushed notification for session %s", session.ID)
}

func (n *NtfyNotifier) build(session *model.Session) *ntfyMessage {
	icon := "💬"
	tag := "speech_balloon"
	if session.NotificationType == model.NotificationTypePermissionPrompt {
		icon = "🔐"
		tag = "lock"
	}

	var b strings.Builder
	b.WriteString(session.Notification)
	if preview := contextPreview(session.ContextTail); preview != "" {
		b.WriteString("\n\n")
		b.WriteString(preview)
	}

	msg := &ntfyMessage{
		Topic:    n.topic,
		Title:    fmt.Sprintf("%s %s/%s", icon, session.MachineName, session.ProjectName),
		Message:  b.String(),
		Priority: 5,
		Tags:     []string{tag},
	}
	if n.baseURL != "" {
		msg.Click = n.baseURL
		msg.Actions = []ntfyAction{{Action: "view", Label: "Open dashboard", URL: n.baseURL}}
	}
	return msg
}

// contextPreview returns the last few non-empty lines of the captured
// terminal tail, truncated to keep the push payload small.
func contextPreview(tail string) string {
	if tail == "" {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(tail, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > previewLines {
		lines = lines[len(lines)-previewLines:]
	}
	preview := strings.Join(lines, "\n")
	if utf8.RuneCountInString(preview) > previewMaxLen {
		runes := []rune(preview)
		preview = string(runes[:previewMaxLen]) + "…"
	}
	return preview
}

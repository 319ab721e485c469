package hook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agent-relay/afk/internal/model"
	"github.com/agent-relay/afk/internal/ws"
)

const permissionMenu = "Do you want to proceed?\n❯ 1. Yes\n  2. Yes, and don't ask again\n  3. No, and tell Claude what to do differently"

type fakeTerminal struct {
	pane       string
	found      bool
	captured   string
	captureErr error
	failInject bool

	sentKeys [][]string
	sentText []string
}

func (f *fakeTerminal) FindWaitingPane() (string, bool) {
	return f.pane, f.found
}

func (f *fakeTerminal) Capture(pane string, lines int) (string, error) {
	return f.captured, f.captureErr
}

func (f *fakeTerminal) SendKeys(pane string, keys []string) error {
	if f.failInject {
		return errInject
	}
	f.sentKeys = append(f.sentKeys, keys)
	return nil
}

func (f *fakeTerminal) SendText(pane, text string) error {
	if f.failInject {
		return errInject
	}
	f.sentText = append(f.sentText, text)
	return nil
}

var errInject = errors.New("injection failed")

// stubHub runs a minimal hub endpoint: it reads one registration
// frame, acks it, sends a liveness probe and then the given response.
// A nil response leaves the agent waiting forever.
func stubHub(t *testing.T, response *string) (string, chan *model.RegisterPayload) {
	t.Helper()
	registered := make(chan *model.RegisterPayload, 1)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var payload model.RegisterPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return
		}
		registered <- &payload

		conn.WriteJSON(&ws.Message{Type: ws.MessageTypeRegistered, SessionID: "stub-session"})
		conn.WriteJSON(&ws.Message{Type: ws.MessageTypePing})

		if response != nil {
			conn.WriteJSON(&ws.Message{Type: ws.MessageTypeResponse, Response: response})
		}
		// Drain pongs until the agent hangs up.
		for {
			var msg ws.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http"), registered
}

func testClient(server string, term Terminal) *Client {
	cfg := DefaultConfig()
	cfg.Server = server
	cfg.TimeoutSeconds = 5
	c := NewClient(cfg, term)
	c.sleep = func(time.Duration) {}
	return c
}

func TestRunDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	c := NewClient(cfg, &fakeTerminal{})

	res, err := c.Run(context.Background(), &Input{Message: "hi"}, &bytes.Buffer{})
	if err != nil || res != ResultNoOp {
		t.Fatalf("expected clean no-op, got %v/%v", res, err)
	}
}

func TestRunNoTerminalNoContext(t *testing.T) {
	c := testClient("ws://127.0.0.1:1/ws/hook", &fakeTerminal{found: false})

	res, err := c.Run(context.Background(), &Input{
		Message:          "permission needed",
		NotificationType: model.NotificationTypePermissionPrompt,
	}, &bytes.Buffer{})
	if err != nil || res != ResultNoOp {
		t.Fatalf("expected no-op without terminal or context, got %v/%v", res, err)
	}
}

func TestRunPermissionPromptInjectsKeys(t *testing.T) {
	response := "always"
	server, registered := stubHub(t, &response)
	term := &fakeTerminal{pane: "%3", found: true, captured: permissionMenu}
	c := testClient(server, term)

	var out bytes.Buffer
	res, err := c.Run(context.Background(), &Input{
		Message:          "Claude needs your permission to use Bash",
		NotificationType: model.NotificationTypePermissionPrompt,
	}, &out)
	if err != nil || res != ResultDelivered {
		t.Fatalf("expected delivered, got %v/%v", res, err)
	}

	payload := <-registered
	if !payload.CanInject {
		t.Error("payload should advertise injection capability")
	}
	if !strings.Contains(payload.ContextTail, "don't ask again") {
		t.Errorf("captured menu missing from payload: %q", payload.ContextTail)
	}

	// "always" maps to the don't-ask-again option of the captured menu.
	if len(term.sentKeys) != 1 || len(term.sentKeys[0]) != 1 || term.sentKeys[0][0] != "2" {
		t.Fatalf("expected keys [2], got %v", term.sentKeys)
	}
	if out.Len() != 0 {
		t.Errorf("raw fallback used despite successful injection: %q", out.String())
	}
}

func TestRunFreeTextTypedLiterally(t *testing.T) {
	response := "looks good, continue with the second approach"
	server, _ := stubHub(t, &response)
	term := &fakeTerminal{pane: "%1", found: true, captured: "Claude is waiting for your input"}
	c := testClient(server, term)

	res, err := c.Run(context.Background(), &Input{
		Message:          "Claude is waiting for your input",
		NotificationType: "input_idle",
	}, &bytes.Buffer{})
	if err != nil || res != ResultDelivered {
		t.Fatalf("expected delivered, got %v/%v", res, err)
	}
	if len(term.sentKeys) != 0 {
		t.Errorf("free text must not go through key translation: %v", term.sentKeys)
	}
	if len(term.sentText) != 1 || term.sentText[0] != response {
		t.Fatalf("expected literal text injection, got %v", term.sentText)
	}
}

func TestRunInjectionFailureFallsBackToRaw(t *testing.T) {
	response := "yes"
	server, _ := stubHub(t, &response)
	term := &fakeTerminal{pane: "%1", found: true, captured: permissionMenu, failInject: true}
	c := testClient(server, term)

	var out bytes.Buffer
	res, err := c.Run(context.Background(), &Input{
		Message:          "Claude needs your permission to use Bash",
		NotificationType: model.NotificationTypePermissionPrompt,
	}, &out)
	if err != nil || res != ResultDelivered {
		t.Fatalf("expected delivered despite injection failure, got %v/%v", res, err)
	}
	if strings.TrimSpace(out.String()) != "yes" {
		t.Fatalf("expected raw response on out, got %q", out.String())
	}
}

func TestRunTimeout(t *testing.T) {
	server, _ := stubHub(t, nil)
	term := &fakeTerminal{pane: "%1", found: true, captured: permissionMenu}
	c := testClient(server, term)
	c.cfg.TimeoutSeconds = 1

	res, err := c.Run(context.Background(), &Input{
		Message:          "Claude needs your permission to use Bash",
		NotificationType: model.NotificationTypePermissionPrompt,
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("timeout is not an error: %v", err)
	}
	if res != ResultTimeout {
		t.Fatalf("expected timeout, got %v", res)
	}
}

func TestRunInterrupted(t *testing.T) {
	server, _ := stubHub(t, nil)
	term := &fakeTerminal{pane: "%1", found: true, captured: permissionMenu}
	c := testClient(server, term)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, _ := c.Run(ctx, &Input{
		Message:          "Claude needs your permission to use Bash",
		NotificationType: model.NotificationTypePermissionPrompt,
	}, &bytes.Buffer{})
	if res != ResultInterrupted {
		t.Fatalf("expected interrupted, got %v", res)
	}
}

func TestRunHubUnreachable(t *testing.T) {
	term := &fakeTerminal{pane: "%1", found: true, captured: permissionMenu}
	c := testClient("ws://127.0.0.1:1/ws/hook", term)

	res, err := c.Run(context.Background(), &Input{
		Message:          "Claude needs your permission to use Bash",
		NotificationType: model.NotificationTypePermissionPrompt,
	}, &bytes.Buffer{})
	if res != ResultUnreachable {
		t.Fatalf("expected unreachable, got %v", res)
	}
	if err == nil {
		t.Fatal("unreachable hub must surface an error")
	}
}

func TestRunContextOnlyWithoutTerminal(t *testing.T) {
	response := "no"
	server, registered := stubHub(t, &response)
	term := &fakeTerminal{found: false}
	c := testClient(server, term)

	var out bytes.Buffer
	res, err := c.Run(context.Background(), &Input{
		Message:          "Claude needs your permission to use Bash",
		NotificationType: model.NotificationTypePermissionPrompt,
		Context:          permissionMenu,
	}, &out)
	if err != nil || res != ResultDelivered {
		t.Fatalf("expected delivered, got %v/%v", res, err)
	}

	payload := <-registered
	if payload.CanInject {
		t.Error("payload must not advertise injection without a pane")
	}
	if strings.TrimSpace(out.String()) != "no" {
		t.Fatalf("expected raw response on out, got %q", out.String())
	}
}

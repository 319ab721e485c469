// Package hook implements the agent-side client: it observes the
// terminal the agent is blocked in, registers a session with the relay
// hub and injects the operator's reply back into that terminal.
package hook

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agent-relay/afk/internal/keymap"
	"github.com/agent-relay/afk/internal/model"
	"github.com/agent-relay/afk/internal/tmux"
	"github.com/agent-relay/afk/internal/ws"
)

// Terminal is the subset of tmux operations the client needs.
type Terminal interface {
	FindWaitingPane() (string, bool)
	Capture(pane string, lines int) (string, error)
	SendKeys(pane string, keys []string) error
	SendText(pane, text string) error
}

// Result classifies the outcome of a hook run.
type Result int

const (
	// ResultDelivered means a response arrived and was handed to the
	// terminal or emitted raw.
	ResultDelivered Result = iota
	// ResultNoOp means there was nothing to relay (disabled, or no
	// terminal and no supplied context).
	ResultNoOp
	// ResultUnreachable means the hub could not be reached or dropped
	// the connection before answering.
	ResultUnreachable
	// ResultTimeout means the wall-clock deadline passed with no
	// response.
	ResultTimeout
	// ResultInterrupted means the surrounding context was cancelled.
	ResultInterrupted
)

const (
	captureLines    = 30
	promptPollTries = 6
	promptPollDelay = 500 * time.Millisecond
	renderDelay     = 300 * time.Millisecond
	dialTimeout     = 10 * time.Second
)

// Client runs one blocked-prompt relay round trip.
type Client struct {
	cfg  *Config
	term Terminal

	// sleep is swappable so tests do not wait out the polling delays.
	sleep func(time.Duration)
}

// NewClient creates a client over the given terminal. A nil terminal
// defaults to the local tmux server.
func NewClient(cfg *Config, term Terminal) *Client {
	if term == nil {
		term = tmux.New()
	}
	return &Client{cfg: cfg, term: term, sleep: time.Sleep}
}

// Run executes the full flow for one hook event. The raw response is
// written to out only when terminal injection is unavailable or fails.
func (c *Client) Run(ctx context.Context, in *Input, out io.Writer) (Result, error) {
	if !c.cfg.Enabled {
		return ResultNoOp, nil
	}

	pane, contextTail, canInject := c.observeTerminal(in)
	if !canInject && contextTail == "" {
		// Nothing to show an operator and nowhere to inject a reply.
		return ResultNoOp, nil
	}

	payload := buildPayload(in, contextTail, canInject)
	response, res, err := c.await(ctx, payload)
	if res != ResultDelivered {
		return res, err
	}

	if canInject {
		if err := c.inject(pane, in.NotificationType, contextTail, response); err == nil {
			return ResultDelivered, nil
		} else {
			log.Printf("[Hook] Injection failed, emitting raw response: %v", err)
		}
	}
	fmt.Fprintln(out, response)
	return ResultDelivered, nil
}

// observeTerminal locates the blocked pane and captures its tail.
// Permission prompts render their menu asynchronously, so they are
// polled with early stop on the menu markers; other notification kinds
// get a single capture after a brief settle delay.
func (c *Client) observeTerminal(in *Input) (pane, tail string, canInject bool) {
	tail = in.Context

	p, ok := c.term.FindWaitingPane()
	if !ok || p == "" {
		return "", tail, false
	}
	pane = p

	if in.NotificationType == model.NotificationTypePermissionPrompt {
		for i := 0; i < promptPollTries; i++ {
			c.sleep(promptPollDelay)
			captured, err := c.term.Capture(pane, captureLines)
			if err != nil {
				continue
			}
			tail = captured
			if tmux.HasPromptMarkers(captured) {
				break
			}
		}
	} else {
		c.sleep(renderDelay)
		if captured, err := c.term.Capture(pane, captureLines); err == nil && captured != "" {
			tail = captured
		}
	}
	return pane, tail, true
}

func buildPayload(in *Input, tail string, canInject bool) *model.RegisterPayload {
	host, _ := os.Hostname()
	machine := strings.SplitN(host, ".", 2)[0]
	if machine == "" {
		machine = "unknown"
	}
	wd, _ := os.Getwd()
	project := filepath.Base(wd)

	return &model.RegisterPayload{
		InstanceID:       fmt.Sprintf("%s-%s-%d", machine, project, os.Getpid()),
		MachineName:      machine,
		ProjectName:      project,
		WorkingDir:       wd,
		Notification:     in.Message,
		NotificationType: in.NotificationType,
		ContextTail:      tail,
		CanInject:        canInject,
	}
}

// await registers with the hub and blocks until a response, the
// wall-clock deadline, cancellation or a transport failure. Liveness
// probes from the hub are answered in the reader and never end the
// wait; the deadline is a plain timer so probe traffic cannot extend
// it.
func (c *Client) await(ctx context.Context, payload *model.RegisterPayload) (string, Result, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.Server, nil)
	if err != nil {
		return "", ResultUnreachable, fmt.Errorf("dial hub: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(payload); err != nil {
		return "", ResultUnreachable, fmt.Errorf("register with hub: %w", err)
	}

	msgs := make(chan ws.Message, 4)
	errs := make(chan error, 1)
	go func() {
		for {
			var msg ws.Message
			if err := conn.ReadJSON(&msg); err != nil {
				errs <- err
				return
			}
			switch msg.Type {
			case ws.MessageTypePing:
				conn.WriteJSON(&ws.Message{Type: ws.MessageTypePong})
			case ws.MessageTypeRegistered:
				log.Printf("[Hook] Registered session %s", msg.SessionID)
			case ws.MessageTypePong:
				// nothing to do
			default:
				msgs <- msg
			}
		}
	}()

	timer := time.NewTimer(c.cfg.Timeout())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ResultInterrupted, ctx.Err()
		case <-timer.C:
			return "", ResultTimeout, nil
		case err := <-errs:
			return "", ResultUnreachable, fmt.Errorf("hub connection lost: %w", err)
		case msg := <-msgs:
			switch msg.Type {
			case ws.MessageTypeResponse:
				var resp string
				if msg.Response != nil {
					resp = *msg.Response
				}
				return resp, ResultDelivered, nil
			case ws.MessageTypeError:
				return "", ResultUnreachable, fmt.Errorf("hub rejected session: %s", msg.Message)
			}
		}
	}
}

// inject hands the response to the terminal. Permission prompts go
// through the key-sequence translator; everything else is typed
// literally.
func (c *Client) inject(pane, notificationType, tail, response string) error {
	if notificationType == model.NotificationTypePermissionPrompt {
		options := keymap.ParseMenuOptions(tail)
		return c.term.SendKeys(pane, keymap.Translate(response, options))
	}
	return c.term.SendText(pane, response)
}

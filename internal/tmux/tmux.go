// Package tmux wraps the tmux pane operations the relay client needs:
// locating the pane a waiting agent runs in, capturing its visible buffer,
// and injecting key sequences or literal text.
package tmux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Common errors.
var (
	ErrNoServer    = errors.New("no tmux server running")
	ErrTmuxMissing = errors.New("tmux not found in PATH")
)

// Tmux wraps tmux operations via subprocess.
type Tmux struct{}

// New creates a new Tmux wrapper.
func New() *Tmux {
	return &Tmux{}
}

// Available reports whether the tmux binary is on PATH.
func (t *Tmux) Available() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

// InsideTmux reports whether the current process runs inside a tmux client.
func InsideTmux() bool {
	return os.Getenv("TMUX") != ""
}

// run executes a tmux command and returns trimmed stdout.
func (t *Tmux) run(args ...string) (string, error) {
	cmd := exec.Command("tmux", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", t.wrapError(err, stderr.String(), args)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// wrapError wraps tmux errors with context.
func (t *Tmux) wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	if errors.Is(err, exec.ErrNotFound) {
		return ErrTmuxMissing
	}

	if strings.Contains(stderr, "no server running") ||
		strings.Contains(stderr, "error connecting to") {
		return ErrNoServer
	}

	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: %w", args[0], err)
}

// Capture returns the trailing lines of the pane's current visible buffer.
// Bounding the tail keeps registration payloads small.
func (t *Tmux) Capture(pane string, lines int) (string, error) {
	args := []string{"capture-pane", "-p"}
	if pane != "" {
		args = append(args, "-t", pane)
	}
	out, err := t.run(args...)
	if err != nil {
		return "", err
	}
	return tailLines(out, lines), nil
}

// SendKeys injects a key token sequence into the pane as one atomic
// send-keys invocation, so intermediate states are never half-applied.
func (t *Tmux) SendKeys(pane string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	args := []string{"send-keys"}
	if pane != "" {
		args = append(args, "-t", pane)
	}
	args = append(args, keys...)
	_, err := t.run(args...)
	return err
}

// SendText injects literal text followed by Enter. The text is sent with -l
// so it is never re-interpreted as key names; Enter goes separately because
// a literal frame cannot carry it.
func (t *Tmux) SendText(pane string, text string) error {
	if text != "" {
		args := []string{"send-keys"}
		if pane != "" {
			args = append(args, "-t", pane)
		}
		args = append(args, "-l", "--", text)
		if _, err := t.run(args...); err != nil {
			return err
		}
	}

	args := []string{"send-keys"}
	if pane != "" {
		args = append(args, "-t", pane)
	}
	args = append(args, "Enter")
	_, err := t.run(args...)
	return err
}

// tailLines returns the last n lines of s.
func tailLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

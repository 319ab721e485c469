package tmux

import (
	"os"
	"regexp"
	"strings"
)

// promptMarkers are screen fragments indicating a permission prompt is
// currently displayed in a pane.
var promptMarkers = []string{"❯ 1.", "☐ Permission", "Allow"}

// uiMarkers are weaker fragments indicating the agent's interactive UI,
// used as a last-resort pane filter.
var uiMarkers = []string{"Claude Code", "❯"}

// semverRe matches a bare version string, which is how the agent binary
// shows up as a pane command on some installs.
var semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// agentProcessName is the command substring that identifies an agent pane.
const agentProcessName = "claude"

// HasPromptMarkers reports whether captured pane content shows a
// permission prompt.
func HasPromptMarkers(content string) bool {
	for _, m := range promptMarkers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

// isAgentCommand reports whether a pane command looks like the agent
// process: either it names the agent, or it is a bare semantic version.
func isAgentCommand(cmd string) bool {
	return strings.Contains(strings.ToLower(cmd), agentProcessName) || semverRe.MatchString(cmd)
}

// parsePaneList parses "pane_id:command" lines from list-panes output and
// returns the pane ids whose command looks like the agent.
func parsePaneList(out string) (agentPanes, allPanes []string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, cmd, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		allPanes = append(allPanes, id)
		if isAgentCommand(cmd) {
			agentPanes = append(agentPanes, id)
		}
	}
	return agentPanes, allPanes
}

// CurrentPane returns the pane the hook was started from: the TMUX_PANE
// environment hint when present, otherwise the active pane of the current
// tmux client.
func (t *Tmux) CurrentPane() (string, bool) {
	if pane := strings.TrimSpace(os.Getenv("TMUX_PANE")); pane != "" {
		return pane, true
	}
	if !InsideTmux() {
		return "", false
	}
	pane, err := t.run("display-message", "-p", "#{pane_id}")
	if err != nil || pane == "" {
		return "", false
	}
	return pane, true
}

// FindWaitingPane locates the pane the blocked agent is running in.
//
// Preference order: the environment-provided pane, then the current
// client's active pane, then a scan of all panes whose command names the
// agent (preferring one currently showing a permission prompt, falling
// back to the most recently created candidate), and finally a content
// scan for the agent's interactive UI.
func (t *Tmux) FindWaitingPane() (string, bool) {
	if pane, ok := t.CurrentPane(); ok {
		return pane, true
	}
	if !t.Available() {
		return "", false
	}
	return t.scanForAgentPane()
}

// scanForAgentPane enumerates panes across all sessions looking for the
// agent process.
func (t *Tmux) scanForAgentPane() (string, bool) {
	out, err := t.run("list-panes", "-a", "-F", "#{pane_id}:#{pane_current_command}")
	if err != nil {
		return "", false
	}

	agentPanes, allPanes := parsePaneList(out)

	for _, pane := range agentPanes {
		content, err := t.Capture(pane, 0)
		if err != nil {
			continue
		}
		if HasPromptMarkers(content) {
			return pane, true
		}
	}
	// No pane currently shows a prompt; the newest agent pane is the best
	// guess since list-panes returns panes in creation order.
	if len(agentPanes) > 0 {
		return agentPanes[len(agentPanes)-1], true
	}

	for _, pane := range allPanes {
		content, err := t.Capture(pane, 0)
		if err != nil {
			continue
		}
		for _, m := range uiMarkers {
			if strings.Contains(content, m) {
				return pane, true
			}
		}
	}

	return "", false
}

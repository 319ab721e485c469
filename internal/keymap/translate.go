package keymap

import "strings"

// Canonical tmux key tokens.
const (
	KeyEnter = "Enter"
)

// specialKeys maps reply words to canonical tmux key names.
var specialKeys = map[string]string{
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"escape":    "Escape",
	"esc":       "Escape",
	"tab":       "Tab",
	"space":     "Space",
	"backspace": "BSpace",
}

// Fallback option numbers for the standard permission prompt layout
// (1 = Yes, 2 = Yes always, 3 = No) when no menu context is available.
const (
	defaultYesOption    = "1"
	defaultAlwaysOption = "2"
	defaultNoOption     = "3"
)

// Translate converts an operator reply into an ordered list of key tokens
// to inject into the agent's terminal. The rules form an ordered policy and
// the first matching rule wins; digit-only replies are checked before the
// semantic yes/no rules so explicit numeric overrides take precedence.
func Translate(reply string, options map[Intent]string) []string {
	reply = strings.TrimSpace(reply)
	lower := strings.ToLower(reply)

	// Empty or explicit "enter": just press Enter.
	if reply == "" || lower == "enter" {
		return []string{KeyEnter}
	}

	// Single digit 1-9: immediate menu selection, no trailing Enter.
	if len(reply) == 1 && reply[0] >= '1' && reply[0] <= '9' {
		return []string{reply}
	}

	switch lower {
	case "y", "yes":
		if num, ok := options[IntentYes]; ok {
			return []string{num}
		}
		return []string{defaultYesOption}
	case "n", "no":
		if num, ok := options[IntentNo]; ok {
			return []string{num}
		}
		return []string{defaultNoOption}
	case "always", "yes always", "yes, always":
		if num, ok := options[IntentAlways]; ok {
			return []string{num}
		}
		return []string{defaultAlwaysOption}
	}

	// Single special key name.
	if key, ok := specialKeys[lower]; ok {
		return []string{key}
	}

	// Compound key sequences like "down down enter" or "down,down,enter".
	if keys, ok := parseKeySequence(lower); ok {
		return keys
	}

	// Anything else is literal text input followed by Enter.
	return []string{reply, KeyEnter}
}

// parseKeySequence splits the reply on commas and whitespace and returns the
// corresponding key tokens, but only when every token is either "enter" or a
// special key name.
func parseKeySequence(lower string) ([]string, bool) {
	parts := strings.Fields(strings.ReplaceAll(lower, ",", " "))
	if len(parts) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "enter" {
			keys = append(keys, KeyEnter)
			continue
		}
		key, ok := specialKeys[p]
		if !ok {
			return nil, false
		}
		keys = append(keys, key)
	}
	return keys, true
}

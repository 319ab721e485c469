// Package keymap converts operator replies into terminal key sequences.
//
// It has two halves: a menu-option extractor that infers which option
// numbers mean "yes", "no", "always", or "type something" from a captured
// prompt, and a translator that maps a free-form reply onto tmux key tokens.
// Both are pure functions with no I/O so they can be tested without a
// terminal present.
package keymap

import (
	"regexp"
	"strings"
)

// Intent is a semantic label inferred for a numbered menu option.
type Intent string

const (
	IntentYes    Intent = "yes"
	IntentNo     Intent = "no"
	IntentAlways Intent = "always"
	IntentType   Intent = "type"
)

// optionLineRe matches menu option lines like "❯ 1. Yes" or "  2. No, cancel".
// A leading selection marker is ignored for parsing purposes.
var optionLineRe = regexp.MustCompile(`^[❯>\s]*(\d)\.\s*(.+)$`)

// Keyword sets used to classify option labels. Matching is case-insensitive
// against the trimmed label text.
var (
	yesKeywords    = []string{"allow", "create", "proceed"}
	alwaysKeywords = []string{"always", "don't ask", "never ask"}
	noKeywords     = []string{"cancel", "deny", "reject"}
	typeKeywords   = []string{"type", "custom", "other"}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ParseMenuOptions extracts a mapping from intent to menu option number
// from captured prompt text. A later matching line for the same intent
// overwrites an earlier one; menus are assumed non-contradictory.
func ParseMenuOptions(context string) map[Intent]string {
	options := make(map[Intent]string)
	if context == "" {
		return options
	}

	for _, line := range strings.Split(context, "\n") {
		m := optionLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		num := m[1]
		label := strings.ToLower(strings.TrimSpace(m[2]))

		switch {
		case strings.HasPrefix(label, "yes") || containsAny(label, yesKeywords):
			if containsAny(label, alwaysKeywords) {
				options[IntentAlways] = num
			} else {
				options[IntentYes] = num
			}
		case strings.HasPrefix(label, "no") || containsAny(label, noKeywords):
			options[IntentNo] = num
		case containsAny(label, typeKeywords):
			options[IntentType] = num
		}
	}

	return options
}

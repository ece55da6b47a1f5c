// Package event defines the typed inbound events the dispatcher consumes.
// Raw callback payloads like "report|equipment|Станок №8" are parsed here at
// the transport boundary so core logic never branches on raw strings.
package event

import "strings"

// Command is a slash command such as /start, optionally with a deep-link
// argument.
type Command struct {
	ActorID     int64
	ChatID      int64
	Name        string
	Argument    string
	DisplayName string
}

// Selection is a decoded button press.
type Selection struct {
	ActorID     int64
	ChatID      int64
	MessageID   int
	CallbackID  string
	Domain      string
	Action      string
	Value       string
	DisplayName string
}

// FreeText is a plain message outside a button flow.
type FreeText struct {
	ActorID     int64
	ChatID      int64
	Text        string
	DisplayName string
}

// Selection domains.
const (
	DomainReport  = "report"
	DomainProfile = "profile"
	DomainFix     = "fix"
)

// ParseCallback splits "domain|action|value" callback data. Value may itself
// contain separators (composite paths), so only the first two are split off.
func ParseCallback(data string) (domain, action, value string, ok bool) {
	parts := strings.SplitN(data, "|", 3)
	if len(parts) < 2 {
		return "", "", "", false
	}
	domain = parts[0]
	action = parts[1]
	if len(parts) == 3 {
		value = parts[2]
	}
	return domain, action, value, true
}

// CallbackData builds the wire form of a selection.
func CallbackData(domain, action, value string) string {
	if value == "" {
		return domain + "|" + action
	}
	return domain + "|" + action + "|" + value
}

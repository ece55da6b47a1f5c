// Package chat models the outbound side of the conversation: prompts,
// keyboards, and the gateway the dispatcher renders them through. The gateway
// is a thin best-effort transport; delivery guarantees stay with it.
package chat

import "context"

// Button is one inline keyboard button. Data is the raw callback payload.
type Button struct {
	Label string
	Data  string
}

// Keyboard is either an inline keyboard (rows of buttons attached to a
// message) or a reply keyboard (persistent menu below the input field).
// RemoveReply drops any visible reply keyboard.
type Keyboard struct {
	Inline      [][]Button
	Reply       [][]string
	RemoveReply bool
}

// Inline builds an inline keyboard with one button per row, the layout every
// menu in the flow uses.
func Inline(buttons ...Button) *Keyboard {
	kb := &Keyboard{}
	for _, b := range buttons {
		kb.Inline = append(kb.Inline, []Button{b})
	}
	return kb
}

// Row appends a row of inline buttons.
func (k *Keyboard) Row(buttons ...Button) *Keyboard {
	k.Inline = append(k.Inline, buttons)
	return k
}

// Prompt is the single outbound message a transition produces. Edit means the
// prompt replaces the message the selection came from; otherwise it is sent
// as a new message.
type Prompt struct {
	Text     string
	Keyboard *Keyboard
	Edit     bool
}

// Gateway is the messaging transport consumed by the dispatcher.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error
	Acknowledge(ctx context.Context, callbackID, text string, alert bool) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

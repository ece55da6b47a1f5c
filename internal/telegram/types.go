package telegram

import (
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
)

// Bot API update payloads, trimmed to the fields the flow reads.

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// DisplayName is the best human label Telegram gives us, used for snapshots
// when no profile exists yet.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}

type Chat struct {
	ID int64 `json:"id"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// Outbound reply-markup shapes.

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type replyButton struct {
	Text string `json:"text"`
}

type replyMarkup struct {
	Keyboard       [][]replyButton `json:"keyboard"`
	ResizeKeyboard bool            `json:"resize_keyboard"`
}

type removeMarkup struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

// markupFor converts the transport-neutral keyboard into the Bot API shape.
// Returns nil when there is nothing to attach.
func markupFor(kb *chat.Keyboard) any {
	switch {
	case kb == nil:
		return nil
	case len(kb.Inline) > 0:
		rows := make([][]inlineButton, 0, len(kb.Inline))
		for _, row := range kb.Inline {
			btns := make([]inlineButton, 0, len(row))
			for _, b := range row {
				btns = append(btns, inlineButton{Text: b.Label, CallbackData: b.Data})
			}
			rows = append(rows, btns)
		}
		return inlineMarkup{InlineKeyboard: rows}
	case len(kb.Reply) > 0:
		rows := make([][]replyButton, 0, len(kb.Reply))
		for _, row := range kb.Reply {
			btns := make([]replyButton, 0, len(row))
			for _, label := range row {
				btns = append(btns, replyButton{Text: label})
			}
			rows = append(rows, btns)
		}
		return replyMarkup{Keyboard: rows, ResizeKeyboard: true}
	case kb.RemoveReply:
		return removeMarkup{RemoveKeyboard: true}
	default:
		return nil
	}
}

package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
)

// Gateway adapts the Bot API client to the dispatcher's outbound interface.
type Gateway struct {
	Client *Client
}

var _ chat.Gateway = (*Gateway)(nil)

func (g *Gateway) Send(ctx context.Context, chatID int64, text string, kb *chat.Keyboard) error {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markup := markupFor(kb); markup != nil {
		params["reply_markup"] = markup
	}
	return g.Client.call(ctx, "sendMessage", params, nil)
}

// Edit rewrites a previously sent message in place. Telegram rejects edits
// that change nothing; that outcome is treated as success so repeated button
// presses stay quiet.
func (g *Gateway) Edit(ctx context.Context, chatID int64, messageID int, text string, kb *chat.Keyboard) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup := markupFor(kb); markup != nil {
		params["reply_markup"] = markup
	}
	err := g.Client.call(ctx, "editMessageText", params, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified") {
		return nil
	}
	return err
}

func (g *Gateway) Acknowledge(ctx context.Context, callbackID, text string, alert bool) error {
	params := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		params["text"] = text
	}
	if alert {
		params["show_alert"] = true
	}
	return g.Client.call(ctx, "answerCallbackQuery", params, nil)
}

func (g *Gateway) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	fields := map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}
	if caption != "" {
		fields["caption"] = caption
	}
	return g.Client.upload(ctx, "sendDocument", fields, "document", filename, data)
}

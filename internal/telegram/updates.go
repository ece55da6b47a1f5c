package telegram

import (
	"context"
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/event"
)

// Handler consumes the typed events decoded from updates. The bot dispatcher
// satisfies it.
type Handler interface {
	HandleCommand(ctx context.Context, cmd event.Command) error
	HandleSelection(ctx context.Context, sel event.Selection) error
	HandleText(ctx context.Context, msg event.FreeText) error
}

// Route decodes one update into a typed event and hands it to h. Updates
// without an actor or with unparseable callback data are dropped without
// error.
func Route(ctx context.Context, h Handler, upd Update) error {
	if cq := upd.CallbackQuery; cq != nil {
		if cq.Message == nil {
			return nil
		}
		domain, action, value, ok := event.ParseCallback(cq.Data)
		if !ok {
			return nil
		}
		return h.HandleSelection(ctx, event.Selection{
			ActorID:     cq.From.ID,
			ChatID:      cq.Message.Chat.ID,
			MessageID:   cq.Message.MessageID,
			CallbackID:  cq.ID,
			Domain:      domain,
			Action:      action,
			Value:       value,
			DisplayName: cq.From.DisplayName(),
		})
	}
	msg := upd.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	if name, arg, ok := parseCommand(msg.Text); ok {
		return h.HandleCommand(ctx, event.Command{
			ActorID:     msg.From.ID,
			ChatID:      msg.Chat.ID,
			Name:        name,
			Argument:    arg,
			DisplayName: msg.From.DisplayName(),
		})
	}
	return h.HandleText(ctx, event.FreeText{
		ActorID:     msg.From.ID,
		ChatID:      msg.Chat.ID,
		Text:        msg.Text,
		DisplayName: msg.From.DisplayName(),
	})
}

// parseCommand recognizes "/name arg" messages, tolerating the "/name@bot"
// form Telegram sends in groups.
func parseCommand(text string) (name, arg string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return "", "", false
	}
	return head, strings.TrimSpace(rest), true
}

package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/access"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/event"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/session"
)

const fixPrompt = "Выберите заявку для закрытия:"

func (d *Dispatcher) startFix(ctx context.Context, chatID, actorID int64) error {
	lvl, err := d.level(ctx, actorID)
	if err != nil {
		return err
	}
	if lvl < access.LevelStandard {
		return d.Gateway.Send(ctx, chatID, "Недостаточно прав для закрытия заявок.", nil)
	}
	if redirected, err := d.requireProfile(ctx, chatID, actorID); redirected || err != nil {
		return err
	}
	kb, err := d.openIssuesKeyboard(ctx)
	if err != nil {
		return err
	}
	d.Sessions.Advance(actorID, session.StepFixPick, session.Patch{})
	return d.Gateway.Send(ctx, chatID, fixPrompt, kb)
}

func (d *Dispatcher) handleFixSelection(ctx context.Context, sel event.Selection) error {
	lvl, err := d.level(ctx, sel.ActorID)
	if err != nil {
		return err
	}
	if lvl < access.LevelStandard {
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Недостаточно прав.", true)
	}
	switch sel.Action {
	case "refresh":
		kb, err := d.openIssuesKeyboard(ctx)
		if err != nil {
			return err
		}
		if err := d.Gateway.Edit(ctx, sel.ChatID, sel.MessageID, fixPrompt, kb); err != nil {
			return err
		}
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Обновлено", false)
	case "pick":
		return d.closePicked(ctx, sel)
	case "noop":
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false)
	default:
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Неизвестная кнопка.", true)
	}
}

func (d *Dispatcher) closePicked(ctx context.Context, sel event.Selection) error {
	id, err := strconv.ParseInt(sel.Value, 10, 64)
	if err != nil {
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Неизвестная заявка.", true)
	}
	closed, err := d.Repo.CloseIssue(ctx, id, sel.ActorID, sel.DisplayName)
	if err != nil {
		return err
	}
	if !closed {
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Не удалось закрыть (возможно, уже закрыта).", true)
	}
	d.Sessions.Reset(sel.ActorID)
	if err := d.Gateway.Edit(ctx, sel.ChatID, sel.MessageID,
		fmt.Sprintf("Заявка #%d закрыта ✅", id), nil); err != nil {
		return err
	}
	if err := d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false); err != nil {
		return err
	}
	kb, err := d.mainMenu(ctx, sel.ActorID)
	if err != nil {
		return err
	}
	return d.Gateway.Send(ctx, sel.ChatID, "Готово. Что дальше?", kb)
}

// openIssuesKeyboard lists open issues one per row, newest first, plus a
// refresh button. Labels are capped so they stay valid button text.
func (d *Dispatcher) openIssuesKeyboard(ctx context.Context) (*chat.Keyboard, error) {
	issues, err := d.Repo.ListOpen(ctx, openIssuesLimit)
	if err != nil {
		return nil, err
	}
	kb := &chat.Keyboard{}
	if len(issues) == 0 {
		kb.Row(chat.Button{Label: "Нет открытых заявок", Data: event.CallbackData(event.DomainFix, "noop", "")})
	}
	for _, is := range issues {
		parts := make([]string, 0, 3)
		for _, p := range []string{is.Area, is.Subarea, is.EquipmentPath} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		label := truncateLabel(fmt.Sprintf("#%d %s", is.ID, strings.Join(parts, "/")), buttonLabelMax)
		kb.Row(chat.Button{
			Label: label,
			Data:  event.CallbackData(event.DomainFix, "pick", strconv.FormatInt(is.ID, 10)),
		})
	}
	kb.Row(chat.Button{Label: "🔄 Обновить", Data: event.CallbackData(event.DomainFix, "refresh", "")})
	return kb, nil
}

func truncateLabel(s string, max int) string {
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max-1]) + "…"
}

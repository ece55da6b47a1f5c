package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/catalog"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/deeplink"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/event"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/session"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/wizard"
)

const nameFormatHint = "Неверный формат. Пример: Иванов И.И.\nПопробуйте ещё раз."

func (d *Dispatcher) profileName(ctx context.Context, msg event.FreeText) error {
	name := strings.TrimSpace(msg.Text)
	if !wizard.ValidFullName(name) {
		return d.Gateway.Send(ctx, msg.ChatID, nameFormatHint, nil)
	}
	d.Sessions.Advance(msg.ActorID, session.StepProfileWaitRole, session.Patch{FullName: session.Set(name)})
	return d.Gateway.Send(ctx, msg.ChatID, "Выберите ваше направление:", d.rolesKeyboard())
}

func (d *Dispatcher) profileEditName(ctx context.Context, msg event.FreeText) error {
	name := strings.TrimSpace(msg.Text)
	if !wizard.ValidFullName(name) {
		return d.Gateway.Send(ctx, msg.ChatID, nameFormatHint, nil)
	}
	role := catalog.DefaultRole
	if u, err := d.Repo.GetUser(ctx, msg.ActorID); err == nil {
		role = u.Role
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := d.Repo.UpsertUser(ctx, msg.ActorID, name, role); err != nil {
		return err
	}
	d.Sessions.Reset(msg.ActorID)
	kb, err := d.mainMenu(ctx, msg.ActorID)
	if err != nil {
		return err
	}
	return d.Gateway.Send(ctx, msg.ChatID, fmt.Sprintf("ФИО обновлено: %s", name), kb)
}

func (d *Dispatcher) showProfile(ctx context.Context, chatID, actorID int64) error {
	u, err := d.Repo.GetUser(ctx, actorID)
	if errors.Is(err, repo.ErrNotFound) {
		_, err := d.requireProfile(ctx, chatID, actorID)
		return err
	}
	if err != nil {
		return err
	}
	kb := chat.Inline(
		chat.Button{Label: "✏️ Изменить ФИО", Data: event.CallbackData(event.DomainProfile, "edit_fio", "")},
		chat.Button{Label: "🔁 Сменить направление", Data: event.CallbackData(event.DomainProfile, "edit_role", "")},
	)
	return d.Gateway.Send(ctx, chatID,
		fmt.Sprintf("👤 Профиль\nФИО: %s\nНаправление: %s", u.FullName, u.Role), kb)
}

func (d *Dispatcher) handleProfileSelection(ctx context.Context, sel event.Selection) error {
	switch sel.Action {
	case "role":
		return d.profileRole(ctx, sel)
	case "edit_fio":
		d.Sessions.Advance(sel.ActorID, session.StepProfileEditName, session.Patch{})
		if err := d.Gateway.Edit(ctx, sel.ChatID, sel.MessageID,
			"Введите новое ФИО (формат: Иванов И.И.):", nil); err != nil {
			return err
		}
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false)
	case "edit_role":
		if err := d.Gateway.Edit(ctx, sel.ChatID, sel.MessageID,
			"Выберите новое направление:", d.rolesKeyboard()); err != nil {
			return err
		}
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false)
	case "cancel":
		d.Sessions.Reset(sel.ActorID)
		if err := d.Gateway.Edit(ctx, sel.ChatID, sel.MessageID,
			"Настройка профиля отменена. Отправьте /start, чтобы начать заново.", nil); err != nil {
			return err
		}
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false)
	default:
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Неизвестная кнопка.", true)
	}
}

// profileRole finalizes the profile with the picked role. The name comes from
// the session when the actor just typed it, otherwise from the stored profile
// (role change path). A deep-link payload parked during /start resumes here.
func (d *Dispatcher) profileRole(ctx context.Context, sel event.Selection) error {
	if !d.Catalog.ValidRole(sel.Value) {
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Неизвестная роль. Выберите из списка.", true)
	}
	s := d.Sessions.GetOrCreate(sel.ActorID)
	name := ""
	if s.Data.FullName != nil {
		name = *s.Data.FullName
	}
	if name == "" {
		u, err := d.Repo.GetUser(ctx, sel.ActorID)
		if errors.Is(err, repo.ErrNotFound) {
			return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Сначала введите ФИО.", true)
		}
		if err != nil {
			return err
		}
		name = u.FullName
	}
	if err := d.Repo.UpsertUser(ctx, sel.ActorID, name, sel.Value); err != nil {
		return err
	}
	payload := ""
	if s.Data.StartPayload != nil {
		payload = *s.Data.StartPayload
	}
	d.Sessions.Reset(sel.ActorID)
	if err := d.Gateway.Edit(ctx, sel.ChatID, sel.MessageID,
		fmt.Sprintf("Профиль сохранён: %s (%s).", name, sel.Value), nil); err != nil {
		return err
	}
	if err := d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false); err != nil {
		return err
	}
	if eq := deeplink.Decode(payload); eq != "" {
		p := d.Wizard.Preseed(sel.ActorID, eq)
		return d.Gateway.Send(ctx, sel.ChatID, p.Text, p.Keyboard)
	}
	kb, err := d.mainMenu(ctx, sel.ActorID)
	if err != nil {
		return err
	}
	return d.Gateway.Send(ctx, sel.ChatID, "Выберите действие:", kb)
}

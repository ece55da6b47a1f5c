// Package bot routes inbound chat events through the wizard, the profile
// sub-flow, and the issue repository. All role gating and user-visible error
// reporting happens here; transports stay dumb.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/access"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/catalog"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/deeplink"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/event"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/export"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/session"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/wizard"
)

const (
	openIssuesLimit  = 20
	ownHistoryLimit  = 15
	fullHistoryLimit = 30
	buttonLabelMax   = 64
)

type Dispatcher struct {
	Repo     repo.Repo
	Sessions *session.Store
	Catalog  *catalog.Catalog
	Access   access.Resolver
	Wizard   *wizard.Wizard
	Gateway  chat.Gateway
	Exporter export.Renderer
}

func New(r repo.Repo, sessions *session.Store, c *catalog.Catalog, acl access.Resolver, gw chat.Gateway, exp export.Renderer) *Dispatcher {
	return &Dispatcher{
		Repo:     r,
		Sessions: sessions,
		Catalog:  c,
		Access:   acl,
		Wizard:   wizard.New(c, sessions),
		Gateway:  gw,
		Exporter: exp,
	}
}

// HandleCommand processes slash commands. Only /start is recognized; its
// optional argument is a deep-link payload naming an equipment item.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd event.Command) error {
	if cmd.Name != "start" {
		return d.menuHint(ctx, cmd.ChatID, cmd.ActorID)
	}
	u, err := d.Repo.GetUser(ctx, cmd.ActorID)
	if errors.Is(err, repo.ErrNotFound) {
		patch := session.Patch{}
		if cmd.Argument != "" {
			patch.StartPayload = session.Set(cmd.Argument)
		}
		d.Sessions.Advance(cmd.ActorID, session.StepProfileWaitName, patch)
		return d.Gateway.Send(ctx, cmd.ChatID,
			"Добро пожаловать! Укажите Фамилию и инициалы в формате: Иванов И.И.\nМожно пробел после точек: Иванов И. И.", nil)
	}
	if err != nil {
		return err
	}
	if eq := deeplink.Decode(cmd.Argument); eq != "" {
		p := d.Wizard.Preseed(cmd.ActorID, eq)
		return d.Gateway.Send(ctx, cmd.ChatID, p.Text, p.Keyboard)
	}
	kb, err := d.mainMenu(ctx, cmd.ActorID)
	if err != nil {
		return err
	}
	return d.Gateway.Send(ctx, cmd.ChatID,
		fmt.Sprintf("Привет, %s (%s). Выберите действие:", u.FullName, u.Role), kb)
}

// HandleSelection processes a decoded button press.
func (d *Dispatcher) HandleSelection(ctx context.Context, sel event.Selection) error {
	switch sel.Domain {
	case event.DomainReport:
		return d.handleReportSelection(ctx, sel)
	case event.DomainProfile:
		return d.handleProfileSelection(ctx, sel)
	case event.DomainFix:
		return d.handleFixSelection(ctx, sel)
	default:
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false)
	}
}

func (d *Dispatcher) handleReportSelection(ctx context.Context, sel event.Selection) error {
	p, err := d.Wizard.Select(sel.ActorID, sel)
	var unknown wizard.UnknownOptionError
	if errors.As(err, &unknown) {
		return d.Gateway.Acknowledge(ctx, sel.CallbackID, "Неизвестная кнопка. Выберите из списка.", true)
	}
	if err != nil {
		return err
	}
	if err := d.Gateway.Edit(ctx, sel.ChatID, sel.MessageID, p.Text, p.Keyboard); err != nil {
		return err
	}
	return d.Gateway.Acknowledge(ctx, sel.CallbackID, "", false)
}

// HandleText processes free text: profile name input, issue descriptions,
// main-menu buttons, and a menu hint for everything else.
func (d *Dispatcher) HandleText(ctx context.Context, msg event.FreeText) error {
	s := d.Sessions.GetOrCreate(msg.ActorID)
	switch s.Step {
	case session.StepProfileWaitName:
		return d.profileName(ctx, msg)
	case session.StepProfileEditName:
		return d.profileEditName(ctx, msg)
	case session.StepReportDescription:
		return d.finishReport(ctx, msg)
	}
	switch msg.Text {
	case MenuReport:
		return d.startReport(ctx, msg.ChatID, msg.ActorID)
	case MenuFix:
		return d.startFix(ctx, msg.ChatID, msg.ActorID)
	case MenuMyHistory:
		return d.ownHistory(ctx, msg.ChatID, msg.ActorID)
	case MenuAllHistory:
		return d.fullHistory(ctx, msg.ChatID, msg.ActorID)
	case MenuExport:
		return d.exportExcel(ctx, msg.ChatID, msg.ActorID)
	case MenuProfile:
		return d.showProfile(ctx, msg.ChatID, msg.ActorID)
	}
	return d.menuHint(ctx, msg.ChatID, msg.ActorID)
}

func (d *Dispatcher) startReport(ctx context.Context, chatID, actorID int64) error {
	if redirected, err := d.requireProfile(ctx, chatID, actorID); redirected || err != nil {
		return err
	}
	if err := d.Gateway.Send(ctx, chatID, "Поломка в:", &chat.Keyboard{RemoveReply: true}); err != nil {
		return err
	}
	p := d.Wizard.Begin(actorID)
	return d.Gateway.Send(ctx, chatID, p.Text, p.Keyboard)
}

func (d *Dispatcher) finishReport(ctx context.Context, msg event.FreeText) error {
	draft, p := d.Wizard.Describe(msg.ActorID, msg.Text)
	if draft == nil {
		return d.Gateway.Send(ctx, msg.ChatID, p.Text, nil)
	}
	id, err := d.Repo.CreateIssue(ctx, msg.ActorID, msg.DisplayName,
		draft.Area, draft.Subarea, draft.EquipmentPath, draft.Description)
	if err != nil {
		return err
	}
	place := domain.Issue{Area: draft.Area, Subarea: draft.Subarea, EquipmentPath: draft.EquipmentPath}.Place()
	if place == "" {
		place = "—"
	}
	kb, err := d.mainMenu(ctx, msg.ActorID)
	if err != nil {
		return err
	}
	return d.Gateway.Send(ctx, msg.ChatID,
		fmt.Sprintf("✅ Заявка создана: #%d\n📍 %s\n📝 %s", id, place, draft.Description), kb)
}

// requireProfile redirects actors without a profile into name capture and
// reports whether the caller should stop.
func (d *Dispatcher) requireProfile(ctx context.Context, chatID, actorID int64) (bool, error) {
	_, err := d.Repo.GetUser(ctx, actorID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	d.Sessions.Advance(actorID, session.StepProfileWaitName, session.Patch{})
	return true, d.Gateway.Send(ctx, chatID,
		"Сначала настроим профиль. Введите ФИО (например, Иванов И.И.).", nil)
}

func (d *Dispatcher) menuHint(ctx context.Context, chatID, actorID int64) error {
	kb, err := d.mainMenu(ctx, actorID)
	if err != nil {
		return err
	}
	return d.Gateway.Send(ctx, chatID, "Выберите действие из меню ниже:", kb)
}

func (d *Dispatcher) level(ctx context.Context, actorID int64) (access.Level, error) {
	return d.Access.Level(ctx, actorID)
}

func exportFilename() string {
	return fmt.Sprintf("issues_export_%s.xlsx", uuid.NewString()[:8])
}

func (d *Dispatcher) exportExcel(ctx context.Context, chatID, actorID int64) error {
	lvl, err := d.level(ctx, actorID)
	if err != nil {
		return err
	}
	if lvl < access.LevelAdmin {
		return d.Gateway.Send(ctx, chatID, "Доступ к экспорту только для администраторов.", nil)
	}
	rows, err := d.Repo.ListAll(ctx, repo.IssueFilters{})
	if err != nil {
		return err
	}
	data, err := d.Exporter.Render(rows)
	if err != nil {
		return d.Gateway.Send(ctx, chatID, fmt.Sprintf("Не удалось сделать экспорт: %v", err), nil)
	}
	return d.Gateway.SendDocument(ctx, chatID, exportFilename(), data, "Экспорт заявок в Excel")
}

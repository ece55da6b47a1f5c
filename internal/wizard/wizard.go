// Package wizard implements the multi-step report flow: area → subarea →
// equipment → component → sub-component → free-text description. Each
// selection advances the per-actor session and yields exactly one prompt.
package wizard

import (
	"fmt"
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/catalog"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/event"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/session"
)

// Selection actions within the report domain.
const (
	ActionBack        = "back"
	ActionArea        = "area"
	ActionSubarea     = "subarea"
	ActionTransport   = "transport"
	ActionTech        = "tech"
	ActionEquipment   = "equipment"
	ActionPackComp    = "packcomp"
	ActionProdComp    = "prodcomp"
	ActionProdSubcomp = "prodsubcomp"
)

// Back targets, kept as the callback values the buttons carry.
const (
	BackRoot      = "1"
	BackWorkshop  = "2_ceh"
	BackTransport = "2_transport"
	BackLines     = "3_pack"
	BackMachines  = "3_prod"
	BackGroupCut  = "4_group"
)

// UnknownOptionError reports a button value outside the catalog. The session
// is left untouched when it is returned.
type UnknownOptionError struct {
	Action string
	Value  string
}

func (e UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown %s option %q", e.Action, e.Value)
}

// Draft is the completed report handed back once a description arrives.
type Draft struct {
	Area          string
	Subarea       string
	EquipmentPath string
	Description   string
}

type Wizard struct {
	Catalog  *catalog.Catalog
	Sessions *session.Store
}

func New(c *catalog.Catalog, s *session.Store) *Wizard {
	return &Wizard{Catalog: c, Sessions: s}
}

// Begin restarts the flow from the root, wiping any accumulated data.
func (w *Wizard) Begin(actorID int64) chat.Prompt {
	w.Sessions.Advance(actorID, session.StepReportArea, session.Patch{
		Area:       session.Clear(),
		Subarea:    session.Clear(),
		Equipment:  session.Clear(),
		Component:  session.Clear(),
		MachineRaw: session.Clear(),
	})
	return chat.Prompt{Text: "Выберите область:", Keyboard: w.areaKeyboard()}
}

// Preseed jumps straight to the description step for a known equipment path,
// used by deep links scanned off a machine.
func (w *Wizard) Preseed(actorID int64, equipment string) chat.Prompt {
	w.Sessions.Advance(actorID, session.StepReportDescription, session.Patch{
		Area:       session.Clear(),
		Subarea:    session.Clear(),
		Equipment:  session.Set(equipment),
		Component:  session.Clear(),
		MachineRaw: session.Clear(),
	})
	return chat.Prompt{Text: fmt.Sprintf("Оборудование: %s\nОпишите поломку:", equipment)}
}

// Select applies a decoded button press to the actor's session and returns
// the next prompt, always edited in place. On an unknown value the session
// stays where it was.
func (w *Wizard) Select(actorID int64, sel event.Selection) (chat.Prompt, error) {
	switch sel.Action {
	case ActionBack:
		return w.back(actorID, sel.Value)
	case ActionArea:
		return w.selectArea(actorID, sel.Value)
	case ActionSubarea:
		return w.selectSubarea(actorID, sel.Value)
	case ActionTransport:
		return w.selectTransport(actorID, sel.Value)
	case ActionTech:
		return w.selectTech(actorID, sel.Value)
	case ActionEquipment:
		return w.selectEquipment(actorID, sel.Value)
	case ActionPackComp:
		return w.selectPackComponent(actorID, sel.Value)
	case ActionProdComp:
		return w.selectProdComponent(actorID, sel.Value)
	case ActionProdSubcomp:
		return w.selectGroupCutSub(actorID, sel.Value)
	default:
		return chat.Prompt{}, UnknownOptionError{Action: sel.Action, Value: sel.Value}
	}
}

// Describe consumes a free-text message at the description step. An empty
// trimmed text re-prompts without completing; otherwise the finished draft is
// returned and the session drops back to idle.
func (w *Wizard) Describe(actorID int64, text string) (*Draft, chat.Prompt) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, chat.Prompt{Text: "Введите описание поломки:"}
	}
	s := w.Sessions.GetOrCreate(actorID)
	draft := &Draft{
		Area:          deref(s.Data.Area),
		Subarea:       deref(s.Data.Subarea),
		EquipmentPath: deref(s.Data.Equipment),
		Description:   text,
	}
	w.Sessions.Reset(actorID)
	return draft, chat.Prompt{}
}

// AtDescription reports whether the actor is waiting to type a description.
func (w *Wizard) AtDescription(actorID int64) bool {
	return w.Sessions.GetOrCreate(actorID).Step == session.StepReportDescription
}

func (w *Wizard) back(actorID int64, target string) (chat.Prompt, error) {
	s := w.Sessions.GetOrCreate(actorID)
	switch target {
	case BackRoot:
		w.Sessions.Advance(actorID, session.StepReportArea, session.Patch{
			Area:       session.Clear(),
			Subarea:    session.Clear(),
			Equipment:  session.Clear(),
			Component:  session.Clear(),
			MachineRaw: session.Clear(),
		})
		return chat.Prompt{Text: "Выберите область:", Keyboard: w.areaKeyboard(), Edit: true}, nil
	case BackWorkshop:
		w.Sessions.Advance(actorID, session.StepReportWorkshop, session.Patch{
			Subarea:    session.Clear(),
			Equipment:  session.Clear(),
			Component:  session.Clear(),
			MachineRaw: session.Clear(),
		})
		return chat.Prompt{Text: "Цех → выберите подразделение:", Keyboard: w.workshopKeyboard(), Edit: true}, nil
	case BackTransport:
		w.Sessions.Advance(actorID, session.StepReportTransport, session.Patch{Subarea: session.Clear()})
		return chat.Prompt{Text: "Транспорт → выберите тип:", Keyboard: w.transportKeyboard(), Edit: true}, nil
	case BackLines:
		w.Sessions.Advance(actorID, session.StepReportLine, session.Patch{
			Equipment:  session.Clear(),
			Component:  session.Clear(),
			MachineRaw: session.Clear(),
		})
		return chat.Prompt{Text: "Фасовка → выберите линию:", Keyboard: w.linesKeyboard(), Edit: true}, nil
	case BackMachines:
		w.Sessions.Advance(actorID, session.StepReportMachine, session.Patch{
			Equipment:  session.Clear(),
			Component:  session.Clear(),
			MachineRaw: session.Clear(),
		})
		return chat.Prompt{Text: "Производство → выберите станок:", Keyboard: w.machinesKeyboard(), Edit: true}, nil
	case BackGroupCut:
		machine := deref(s.Data.MachineRaw)
		if machine == "" {
			machine = deref(s.Data.Equipment)
		}
		w.Sessions.Advance(actorID, session.StepReportProdComponent, session.Patch{Component: session.Clear()})
		return chat.Prompt{
			Text:     fmt.Sprintf("%s → выберите узел:", machine),
			Keyboard: w.prodComponentsKeyboard(machine),
			Edit:     true,
		}, nil
	default:
		return chat.Prompt{}, UnknownOptionError{Action: ActionBack, Value: target}
	}
}

func (w *Wizard) selectArea(actorID int64, value string) (chat.Prompt, error) {
	patch := session.Patch{
		Area:       session.Set(value),
		Subarea:    session.Clear(),
		Equipment:  session.Clear(),
		Component:  session.Clear(),
		MachineRaw: session.Clear(),
	}
	switch value {
	case catalog.AreaWorkshop:
		w.Sessions.Advance(actorID, session.StepReportWorkshop, patch)
		return chat.Prompt{Text: "Цех → выберите подразделение:", Keyboard: w.workshopKeyboard(), Edit: true}, nil
	case catalog.AreaTransport:
		w.Sessions.Advance(actorID, session.StepReportTransport, patch)
		return chat.Prompt{Text: "Транспорт → выберите тип:", Keyboard: w.transportKeyboard(), Edit: true}, nil
	default:
		return chat.Prompt{}, UnknownOptionError{Action: ActionArea, Value: value}
	}
}

func (w *Wizard) selectSubarea(actorID int64, value string) (chat.Prompt, error) {
	patch := session.Patch{
		Subarea:    session.Set(value),
		Equipment:  session.Clear(),
		Component:  session.Clear(),
		MachineRaw: session.Clear(),
	}
	switch value {
	case catalog.SubareaProduction:
		w.Sessions.Advance(actorID, session.StepReportMachine, patch)
		return chat.Prompt{Text: "Производство → выберите станок:", Keyboard: w.machinesKeyboard(), Edit: true}, nil
	case catalog.SubareaPacking:
		w.Sessions.Advance(actorID, session.StepReportLine, patch)
		return chat.Prompt{Text: "Фасовка → выберите линию:", Keyboard: w.linesKeyboard(), Edit: true}, nil
	case catalog.SubareaTech:
		w.Sessions.Advance(actorID, session.StepReportTech, patch)
		return chat.Prompt{Text: "Техническое оборудование → выберите:", Keyboard: w.techKeyboard(), Edit: true}, nil
	default:
		return chat.Prompt{}, UnknownOptionError{Action: ActionSubarea, Value: value}
	}
}

// Transport types feed the description directly: the type lands in subarea
// and equipment stays empty, so transport issues carry area/subarea only.
func (w *Wizard) selectTransport(actorID int64, value string) (chat.Prompt, error) {
	if !contains(w.Catalog.TransportTypes, value) {
		return chat.Prompt{}, UnknownOptionError{Action: ActionTransport, Value: value}
	}
	w.Sessions.Advance(actorID, session.StepReportDescription, session.Patch{Subarea: session.Set(value)})
	return chat.Prompt{Text: fmt.Sprintf("%s → опишите проблему:", value), Edit: true}, nil
}

func (w *Wizard) selectTech(actorID int64, value string) (chat.Prompt, error) {
	if !contains(w.Catalog.TechEquipment, value) {
		return chat.Prompt{}, UnknownOptionError{Action: ActionTech, Value: value}
	}
	w.Sessions.Advance(actorID, session.StepReportDescription, session.Patch{Equipment: session.Set(value)})
	return chat.Prompt{Text: fmt.Sprintf("%s → опишите проблему:", value), Edit: true}, nil
}

func (w *Wizard) selectEquipment(actorID int64, value string) (chat.Prompt, error) {
	s := w.Sessions.GetOrCreate(actorID)
	patch := session.Patch{
		Equipment:  session.Set(value),
		MachineRaw: session.Set(value),
		Component:  session.Clear(),
	}
	switch deref(s.Data.Subarea) {
	case catalog.SubareaPacking:
		if !contains(w.Catalog.PackingLines, value) {
			return chat.Prompt{}, UnknownOptionError{Action: ActionEquipment, Value: value}
		}
		if value == catalog.TerminalLine {
			// Line 2.5 has no component layer at all.
			w.Sessions.Advance(actorID, session.StepReportDescription, patch)
			return chat.Prompt{Text: fmt.Sprintf("Фасовка %s → опишите проблему:", value), Edit: true}, nil
		}
		w.Sessions.Advance(actorID, session.StepReportPackComponent, patch)
		return chat.Prompt{
			Text:     fmt.Sprintf("Фасовка %s → выберите узел:", value),
			Keyboard: w.packComponentsKeyboard(),
			Edit:     true,
		}, nil
	case catalog.SubareaProduction:
		if !contains(w.Catalog.ProductionMachines, value) {
			return chat.Prompt{}, UnknownOptionError{Action: ActionEquipment, Value: value}
		}
		w.Sessions.Advance(actorID, session.StepReportProdComponent, patch)
		return chat.Prompt{
			Text:     fmt.Sprintf("%s → выберите узел:", value),
			Keyboard: w.prodComponentsKeyboard(value),
			Edit:     true,
		}, nil
	default:
		return chat.Prompt{}, UnknownOptionError{Action: ActionEquipment, Value: value}
	}
}

func (w *Wizard) selectPackComponent(actorID int64, value string) (chat.Prompt, error) {
	if !contains(w.Catalog.PackingComponents, value) {
		return chat.Prompt{}, UnknownOptionError{Action: ActionPackComp, Value: value}
	}
	s := w.Sessions.GetOrCreate(actorID)
	line := deref(s.Data.Equipment)
	w.Sessions.Advance(actorID, session.StepReportDescription, session.Patch{
		Component: session.Set(value),
		Equipment: session.Set(line + " > " + value),
	})
	return chat.Prompt{Text: fmt.Sprintf("%s / %s → опишите проблему:", line, value), Edit: true}, nil
}

func (w *Wizard) selectProdComponent(actorID int64, value string) (chat.Prompt, error) {
	s := w.Sessions.GetOrCreate(actorID)
	machine := deref(s.Data.MachineRaw)
	if machine == "" {
		machine = deref(s.Data.Equipment)
	}
	if !contains(w.Catalog.ComponentsFor(machine), value) {
		return chat.Prompt{}, UnknownOptionError{Action: ActionProdComp, Value: value}
	}
	if machine == catalog.GroupCutMachine && value == catalog.GroupCutComponent {
		w.Sessions.Advance(actorID, session.StepReportGroupCut, session.Patch{})
		return chat.Prompt{
			Text:     fmt.Sprintf("%s → %s → выберите подузел:", machine, catalog.GroupCutComponent),
			Keyboard: w.groupCutKeyboard(),
			Edit:     true,
		}, nil
	}
	w.Sessions.Advance(actorID, session.StepReportDescription, session.Patch{
		Component: session.Set(value),
		Equipment: session.Set(machine + " > " + value),
	})
	return chat.Prompt{Text: fmt.Sprintf("%s / %s → опишите проблему:", machine, value), Edit: true}, nil
}

func (w *Wizard) selectGroupCutSub(actorID int64, value string) (chat.Prompt, error) {
	if !contains(w.Catalog.GroupCutSubcomponents, value) {
		return chat.Prompt{}, UnknownOptionError{Action: ActionProdSubcomp, Value: value}
	}
	s := w.Sessions.GetOrCreate(actorID)
	machine := deref(s.Data.MachineRaw)
	if machine == "" {
		machine = deref(s.Data.Equipment)
	}
	w.Sessions.Advance(actorID, session.StepReportDescription, session.Patch{
		Component: session.Set(catalog.GroupCutComponent + " > " + value),
		Equipment: session.Set(machine + " > " + catalog.GroupCutComponent + " > " + value),
	})
	return chat.Prompt{
		Text: fmt.Sprintf("%s / %s / %s → опишите проблему:", machine, catalog.GroupCutComponent, value),
		Edit: true,
	}, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

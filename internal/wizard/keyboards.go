package wizard

import (
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/catalog"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/event"
)

func reportButton(action, value string) chat.Button {
	return chat.Button{Label: value, Data: event.CallbackData(event.DomainReport, action, value)}
}

func backButton(target string) chat.Button {
	return chat.Button{Label: "⬅ Назад", Data: event.CallbackData(event.DomainReport, ActionBack, target)}
}

func (w *Wizard) areaKeyboard() *chat.Keyboard {
	return chat.Inline(
		reportButton(ActionArea, catalog.AreaWorkshop),
		reportButton(ActionArea, catalog.AreaTransport),
	)
}

func (w *Wizard) workshopKeyboard() *chat.Keyboard {
	return chat.Inline(
		reportButton(ActionSubarea, catalog.SubareaProduction),
		reportButton(ActionSubarea, catalog.SubareaPacking),
		reportButton(ActionSubarea, catalog.SubareaTech),
		backButton(BackRoot),
	)
}

func (w *Wizard) transportKeyboard() *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, t := range w.Catalog.TransportTypes {
		kb.Row(reportButton(ActionTransport, t))
	}
	return kb.Row(backButton(BackRoot))
}

func (w *Wizard) machinesKeyboard() *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, m := range w.Catalog.ProductionMachines {
		kb.Row(reportButton(ActionEquipment, m))
	}
	return kb.Row(backButton(BackWorkshop))
}

func (w *Wizard) linesKeyboard() *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, l := range w.Catalog.PackingLines {
		kb.Row(reportButton(ActionEquipment, l))
	}
	return kb.Row(backButton(BackWorkshop))
}

func (w *Wizard) techKeyboard() *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, t := range w.Catalog.TechEquipment {
		kb.Row(reportButton(ActionTech, t))
	}
	return kb.Row(backButton(BackWorkshop))
}

func (w *Wizard) packComponentsKeyboard() *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, c := range w.Catalog.PackingComponents {
		kb.Row(reportButton(ActionPackComp, c))
	}
	return kb.Row(backButton(BackLines))
}

func (w *Wizard) prodComponentsKeyboard(machine string) *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, c := range w.Catalog.ComponentsFor(machine) {
		kb.Row(reportButton(ActionProdComp, c))
	}
	return kb.Row(backButton(BackMachines))
}

func (w *Wizard) groupCutKeyboard() *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, s := range w.Catalog.GroupCutSubcomponents {
		kb.Row(reportButton(ActionProdSubcomp, s))
	}
	return kb.Row(backButton(BackGroupCut))
}

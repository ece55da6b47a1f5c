package bot

import (
	"context"
	"unicode"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/access"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/event"
)

// Main menu reply-keyboard labels. HandleText matches on them verbatim.
const (
	MenuReport     = "📣 Сообщить о проблеме"
	MenuFix        = "✅ Сообщить о решении"
	MenuMyHistory  = "📜 История (мои)"
	MenuAllHistory = "📚 История (все)"
	MenuExport     = "📤 Экспорт Excel"
	MenuProfile    = "👤 Профиль"
)

// mainMenu builds the persistent reply keyboard for the actor's access level.
// Level 1 only reports and views own history, level 2 adds closing and the
// shared history, level 3 adds the Excel export.
func (d *Dispatcher) mainMenu(ctx context.Context, actorID int64) (*chat.Keyboard, error) {
	lvl, err := d.level(ctx, actorID)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{MenuReport}}
	if lvl >= access.LevelStandard {
		rows = append(rows, []string{MenuFix})
	}
	historyRow := []string{MenuMyHistory}
	if lvl >= access.LevelStandard {
		historyRow = append(historyRow, MenuAllHistory)
	}
	rows = append(rows, historyRow)
	if lvl >= access.LevelAdmin {
		rows = append(rows, []string{MenuExport})
	}
	rows = append(rows, []string{MenuProfile})
	return &chat.Keyboard{Reply: rows}, nil
}

func (d *Dispatcher) rolesKeyboard() *chat.Keyboard {
	kb := &chat.Keyboard{}
	for _, r := range d.Catalog.Roles {
		kb.Row(chat.Button{Label: titleRole(r), Data: event.CallbackData(event.DomainProfile, "role", r)})
	}
	return kb
}

func titleRole(role string) string {
	rs := []rune(role)
	if len(rs) == 0 {
		return role
	}
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

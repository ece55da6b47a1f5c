package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/access"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
)

const (
	ownHistoryShown  = 10
	fullHistoryShown = 15
)

func (d *Dispatcher) ownHistory(ctx context.Context, chatID, actorID int64) error {
	issues, err := d.Repo.ListByReporter(ctx, actorID, ownHistoryLimit)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return d.Gateway.Send(ctx, chatID, "История пуста.", nil)
	}
	return d.Gateway.Send(ctx, chatID,
		"📜 Ваши заявки:\n\n"+renderHistory(issues, ownHistoryShown, false), nil)
}

func (d *Dispatcher) fullHistory(ctx context.Context, chatID, actorID int64) error {
	lvl, err := d.level(ctx, actorID)
	if err != nil {
		return err
	}
	if lvl < access.LevelStandard {
		return d.Gateway.Send(ctx, chatID, "Недостаточно прав для общей истории.", nil)
	}
	issues, err := d.Repo.ListAll(ctx, repo.IssueFilters{Limit: fullHistoryLimit})
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return d.Gateway.Send(ctx, chatID, "История пуста.", nil)
	}
	return d.Gateway.Send(ctx, chatID,
		"📚 Все заявки:\n\n"+renderHistory(issues, fullHistoryShown, true), nil)
}

// renderHistory formats issues newest-first, one block each. withResolver adds
// who closed the issue, which only the shared history shows.
func renderHistory(issues []domain.Issue, shown int, withResolver bool) string {
	if len(issues) > shown {
		issues = issues[:shown]
	}
	blocks := make([]string, 0, len(issues))
	for _, is := range issues {
		tag := "🟥"
		if is.Status == domain.StatusClosed {
			tag = "🟩"
		}
		place := is.Place()
		if place == "" {
			place = "—"
		}
		who := "—"
		if is.ReporterNameSnapshot != "" {
			who = is.ReporterNameSnapshot
			if is.ReporterRoleSnapshot != "" {
				who += " (" + is.ReporterRoleSnapshot + ")"
			}
		}
		res := ""
		if is.Status == domain.StatusClosed && is.ResolvedAt != nil {
			res = " → закрыта " + *is.ResolvedAt
			if withResolver && is.ResolverDisplayName != nil && *is.ResolverDisplayName != "" {
				res += " (закрыл: " + *is.ResolverDisplayName + ")"
			}
		}
		blocks = append(blocks, fmt.Sprintf("%s #%d [%s] — %s\n   👤 %s\n   📝 %s%s",
			tag, is.ID, is.CreatedAt, place, who, is.Description, res))
	}
	return strings.Join(blocks, "\n\n")
}

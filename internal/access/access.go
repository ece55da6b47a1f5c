package access

import (
	"context"
	"errors"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/catalog"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
)

// Level is the three-tier permission rank.
//
//	1 restricted: report issues, view own history
//	2 standard:   also close issues, view full history
//	3 admin:      also export
type Level int

const (
	LevelRestricted Level = 1
	LevelStandard   Level = 2
	LevelAdmin      Level = 3
)

// Resolver derives an actor's level from the configured admin set and the
// stored profile role.
type Resolver struct {
	Admins map[int64]struct{}
	Users  UserGetter
}

type UserGetter interface {
	GetUser(ctx context.Context, actorID int64) (domain.User, error)
}

func NewResolver(adminIDs []int64, users UserGetter) Resolver {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return Resolver{Admins: admins, Users: users}
}

// IsAdmin reports whether the actor is in the administrator set.
func (r Resolver) IsAdmin(actorID int64) bool {
	_, ok := r.Admins[actorID]
	return ok
}

// Level returns the actor's permission level. Admin membership wins over any
// stored role; only the restricted role demotes below standard. A missing
// profile counts as standard, matching the operational default.
func (r Resolver) Level(ctx context.Context, actorID int64) (Level, error) {
	if r.IsAdmin(actorID) {
		return LevelAdmin, nil
	}
	u, err := r.Users.GetUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return LevelStandard, nil
		}
		return 0, err
	}
	if u.Role == catalog.RestrictedRole {
		return LevelRestricted, nil
	}
	return LevelStandard, nil
}

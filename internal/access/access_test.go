package access_test

import (
	"context"
	"testing"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/access"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
)

type fakeUsers map[int64]domain.User

func (f fakeUsers) GetUser(_ context.Context, actorID int64) (domain.User, error) {
	u, ok := f[actorID]
	if !ok {
		return domain.User{}, repo.ErrNotFound
	}
	return u, nil
}

func TestLevels(t *testing.T) {
	users := fakeUsers{
		10: {ActorID: 10, FullName: "Иванов И.И.", Role: "инженер"},
		11: {ActorID: 11, FullName: "Петров П.П.", Role: "технолог"},
		99: {ActorID: 99, FullName: "Админов А.А.", Role: "технолог"},
	}
	r := access.NewResolver([]int64{99}, users)
	ctx := context.Background()

	cases := []struct {
		actor int64
		want  access.Level
	}{
		{10, access.LevelStandard},
		{11, access.LevelRestricted},
		// Admin membership wins even over the restricted role.
		{99, access.LevelAdmin},
		// No profile yet defaults to standard.
		{12, access.LevelStandard},
	}
	for _, tc := range cases {
		got, err := r.Level(ctx, tc.actor)
		if err != nil {
			t.Fatalf("level(%d): %v", tc.actor, err)
		}
		if got != tc.want {
			t.Errorf("level(%d) = %d, want %d", tc.actor, got, tc.want)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	r := access.NewResolver([]int64{99}, fakeUsers{})
	if !r.IsAdmin(99) || r.IsAdmin(10) {
		t.Fatalf("admin set resolved incorrectly")
	}
}

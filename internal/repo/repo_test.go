package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/db"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/migrate"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn, Now: func() time.Time {
		return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	}}
}

func TestCreateIssueSnapshotsProfile(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	if err := r.UpsertUser(ctx, 100, "Иванов И.И.", "инженер"); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	id, err := r.CreateIssue(ctx, 100, "TG Name", "Цех", "Фасовка", "0.3Н > бункер", "течёт клапан")
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if id != 1 {
		t.Fatalf("first issue id = %d, want 1", id)
	}
	i, err := r.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if i.Status != domain.StatusOpen {
		t.Fatalf("status = %q, want open", i.Status)
	}
	if i.ReporterNameSnapshot != "Иванов И.И." || i.ReporterRoleSnapshot != "инженер" {
		t.Fatalf("snapshots = %q/%q", i.ReporterNameSnapshot, i.ReporterRoleSnapshot)
	}
	if i.CreatedAt != "2024-05-01T10:00:00" {
		t.Fatalf("created_at = %q", i.CreatedAt)
	}
}

func TestCreateIssueWithoutProfileUsesDisplayName(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, err := r.CreateIssue(ctx, 200, "Fallback Name", "Транспорт", "Погрузчики", "", "не заводится")
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	i, err := r.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if i.ReporterNameSnapshot != "Fallback Name" {
		t.Fatalf("name snapshot = %q, want display name fallback", i.ReporterNameSnapshot)
	}
	if i.ReporterRoleSnapshot != "" {
		t.Fatalf("role snapshot = %q, want empty", i.ReporterRoleSnapshot)
	}
}

func TestSnapshotsSurviveProfileEdit(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	if err := r.UpsertUser(ctx, 100, "Иванов И.И.", "инженер"); err != nil {
		t.Fatal(err)
	}
	id, err := r.CreateIssue(ctx, 100, "", "Цех", "Производство", "Станок №9 > нож", "шумит")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.UpsertUser(ctx, 100, "Петров П.П.", "механик"); err != nil {
		t.Fatal(err)
	}
	i, err := r.GetIssue(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if i.ReporterNameSnapshot != "Иванов И.И." || i.ReporterRoleSnapshot != "инженер" {
		t.Fatalf("snapshots changed after profile edit: %q/%q", i.ReporterNameSnapshot, i.ReporterRoleSnapshot)
	}
}

func TestCloseIssueCompareAndSwap(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, err := r.CreateIssue(ctx, 100, "Reporter", "Цех", "Фасовка", "0.8 > бункер", "скрипит")
	if err != nil {
		t.Fatal(err)
	}
	closed, err := r.CloseIssue(ctx, id, 300, "Closer")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed {
		t.Fatalf("first close reported no change")
	}
	i, err := r.GetIssue(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if i.Status != domain.StatusClosed {
		t.Fatalf("status = %q, want closed", i.Status)
	}
	if i.ResolvedAt == nil || *i.ResolvedAt != "2024-05-01T10:00:00" {
		t.Fatalf("resolved_at = %v", i.ResolvedAt)
	}
	if i.ResolverID == nil || *i.ResolverID != 300 {
		t.Fatalf("resolver_id = %v", i.ResolverID)
	}
	// Second closer loses the race.
	closed, err = r.CloseIssue(ctx, id, 400, "Other")
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if closed {
		t.Fatalf("second close reported a change")
	}
	i, _ = r.GetIssue(ctx, id)
	if i.ResolverID == nil || *i.ResolverID != 300 {
		t.Fatalf("resolver overwritten by losing closer: %v", i.ResolverID)
	}
}

func TestCloseMissingIssue(t *testing.T) {
	r := newTestRepo(t)
	closed, err := r.CloseIssue(context.Background(), 999, 1, "x")
	if err != nil {
		t.Fatalf("close missing: %v", err)
	}
	if closed {
		t.Fatalf("closing a missing issue reported a change")
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		reporter := int64(100)
		if i == 1 {
			reporter = 200
		}
		if _, err := r.CreateIssue(ctx, reporter, "", "Цех", "Фасовка", "0.3Н", "desc"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.CloseIssue(ctx, 1, 100, ""); err != nil {
		t.Fatal(err)
	}

	all, err := r.ListAll(ctx, repo.IssueFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != 3 || all[2].ID != 1 {
		t.Fatalf("unexpected ordering: %+v", ids(all))
	}

	open, err := r.ListOpen(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Fatalf("open = %v, want 2", ids(open))
	}

	mine, err := r.ListByReporter(ctx, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Fatalf("by reporter = %v, want 2", ids(mine))
	}

	limited, err := r.ListAll(ctx, repo.IssueFilters{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != 3 {
		t.Fatalf("limit 1 = %v, want [3]", ids(limited))
	}
}

func TestPurgeResetsNumbering(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := r.CreateIssue(ctx, 100, "", "Цех", "Фасовка", "0.3Н", "desc"); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.PurgeAll(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	all, err := r.ListAll(ctx, repo.IssueFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("issues left after purge: %v", ids(all))
	}
	id, err := r.CreateIssue(ctx, 100, "", "Цех", "Фасовка", "0.3Н", "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Fatalf("post-purge id = %d, want 1", id)
	}
}

func TestUpsertUserKeepsCreatedAt(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	if err := r.UpsertUser(ctx, 100, "Иванов И.И.", "инженер"); err != nil {
		t.Fatal(err)
	}
	first, err := r.GetUser(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	r.Now = func() time.Time { return time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC) }
	if err := r.UpsertUser(ctx, 100, "Иванов И.И.", "механик"); err != nil {
		t.Fatal(err)
	}
	u, err := r.GetUser(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != "механик" {
		t.Fatalf("role = %q, want updated", u.Role)
	}
	if u.CreatedAt != first.CreatedAt {
		t.Fatalf("created_at changed on upsert: %q -> %q", first.CreatedAt, u.CreatedAt)
	}
}

func TestGetUserMissing(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.GetUser(context.Background(), 555)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpsKeysRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	hash := repo.HashOpsKey("secret-key")
	if err := r.InsertOpsKey(ctx, domain.OpsKey{ID: "k1", Name: "ci", KeyHash: hash}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	k, err := r.GetOpsKeyByHash(ctx, repo.HashOpsKey("  secret-key  "))
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if k.ID != "k1" || k.Name != "ci" {
		t.Fatalf("got %+v", k)
	}
	if _, err := r.GetOpsKeyByHash(ctx, repo.HashOpsKey("wrong")); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("wrong key err = %v", err)
	}
	keys, err := r.ListOpsKeys(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("list = %v, %v", keys, err)
	}
	if err := r.DeleteOpsKey(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.DeleteOpsKey(ctx, "k1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("delete missing err = %v", err)
	}
}

func ids(issues []domain.Issue) []int64 {
	out := make([]int64, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.ID)
	}
	return out
}

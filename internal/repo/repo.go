package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
)

type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var ErrNotFound = errors.New("not found")

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r Repo) timestamp() string {
	return r.now().Format("2006-01-02T15:04:05")
}

// GetUser returns the stored profile for an actor.
func (r Repo) GetUser(ctx context.Context, actorID int64) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT actor_id, full_name, role, created_at FROM users WHERE actor_id=?`, actorID).
		Scan(&u.ActorID, &u.FullName, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// UpsertUser creates or updates a profile. created_at is kept from the first
// insert so the profile's age survives edits.
func (r Repo) UpsertUser(ctx context.Context, actorID int64, fullName, role string) error {
	return r.withRetry(ctx, func() error {
		_, err := r.DB.ExecContext(ctx, `INSERT INTO users(actor_id, full_name, role, created_at) VALUES (?,?,?,?)
ON CONFLICT(actor_id) DO UPDATE SET full_name=excluded.full_name, role=excluded.role`,
			actorID, fullName, role, r.timestamp())
		return err
	})
}

// CreateIssue inserts an open issue, capturing the reporter's current profile
// name and role as immutable snapshots. When no profile exists the passed
// display name stands in for the name snapshot.
func (r Repo) CreateIssue(ctx context.Context, reporterID int64, displayName, area, subarea, equipmentPath, description string) (int64, error) {
	nameSnapshot := displayName
	roleSnapshot := ""
	if u, err := r.GetUser(ctx, reporterID); err == nil {
		nameSnapshot = u.FullName
		roleSnapshot = u.Role
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	var id int64
	err := r.withRetry(ctx, func() error {
		res, err := r.DB.ExecContext(ctx, `INSERT INTO issues(
			created_at, reporter_id, reporter_display_name,
			area, subarea, equipment_path, description,
			status, reporter_name_snapshot, reporter_role_snapshot
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			r.timestamp(), reporterID, nullable(displayName),
			nullable(area), nullable(subarea), nullable(equipmentPath), description,
			domain.StatusOpen, nullable(nameSnapshot), nullable(roleSnapshot))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// CloseIssue flips status open -> closed and records the resolver. The WHERE
// clause on status makes the update a compare-and-swap: the second of two
// racing closers sees zero rows affected and gets false back.
func (r Repo) CloseIssue(ctx context.Context, id, resolverID int64, resolverName string) (bool, error) {
	var changed bool
	err := r.withRetry(ctx, func() error {
		res, err := r.DB.ExecContext(ctx, `UPDATE issues
			SET status=?, resolved_at=?, resolver_id=?, resolver_display_name=?
			WHERE id=? AND status=?`,
			domain.StatusClosed, r.timestamp(), resolverID, nullable(resolverName), id, domain.StatusOpen)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	return changed, err
}

const issueColumns = `id, created_at, reporter_id, COALESCE(reporter_display_name,''),
	COALESCE(area,''), COALESCE(subarea,''), COALESCE(equipment_path,''), description, status,
	resolved_at, resolver_id, resolver_display_name,
	COALESCE(reporter_name_snapshot,''), COALESCE(reporter_role_snapshot,'')`

func scanIssue(rows *sql.Rows) (domain.Issue, error) {
	var i domain.Issue
	var resolvedAt, resolverName sql.NullString
	var resolverID sql.NullInt64
	err := rows.Scan(&i.ID, &i.CreatedAt, &i.ReporterID, &i.ReporterDisplayName,
		&i.Area, &i.Subarea, &i.EquipmentPath, &i.Description, &i.Status,
		&resolvedAt, &resolverID, &resolverName,
		&i.ReporterNameSnapshot, &i.ReporterRoleSnapshot)
	if err != nil {
		return i, err
	}
	if resolvedAt.Valid {
		i.ResolvedAt = &resolvedAt.String
	}
	if resolverID.Valid {
		i.ResolverID = &resolverID.Int64
	}
	if resolverName.Valid {
		i.ResolverDisplayName = &resolverName.String
	}
	return i, nil
}

// GetIssue returns a single issue by id.
func (r Repo) GetIssue(ctx context.Context, id int64) (domain.Issue, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id=?`, id)
	if err != nil {
		return domain.Issue{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Issue{}, err
		}
		return domain.Issue{}, ErrNotFound
	}
	return scanIssue(rows)
}

// ListOpen returns open issues newest-first, bounded by limit.
func (r Repo) ListOpen(ctx context.Context, limit int) ([]domain.Issue, error) {
	return r.ListAll(ctx, IssueFilters{Status: domain.StatusOpen, Limit: limit})
}

// ListByReporter returns an actor's own issues newest-first, bounded by limit.
func (r Repo) ListByReporter(ctx context.Context, actorID int64, limit int) ([]domain.Issue, error) {
	return r.ListAll(ctx, IssueFilters{ReporterID: &actorID, Limit: limit})
}

type IssueFilters struct {
	Status     string
	ReporterID *int64
	Limit      int
}

// ListAll returns issues newest-first with optional status/reporter filters.
func (r Repo) ListAll(ctx context.Context, f IssueFilters) ([]domain.Issue, error) {
	var clauses []string
	var args []any
	if f.Status == domain.StatusOpen || f.Status == domain.StatusClosed {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.ReporterID != nil {
		clauses = append(clauses, "reporter_id=?")
		args = append(args, *f.ReporterID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + issueColumns + ` FROM issues ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, rows.Err()
}

// PurgeAll deletes every issue and resets the id sequence so the next issue
// gets id 1. Irreversible; exposed only through maintenance surfaces.
func (r Repo) PurgeAll(ctx context.Context) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx, `DELETE FROM issues`); err != nil {
			return fmt.Errorf("delete issues: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name='issues'`); err != nil {
			return fmt.Errorf("reset issue sequence: %w", err)
		}
		return tx.Commit()
	})
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

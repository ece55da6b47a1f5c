package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
)

// HashOpsKey returns a stable SHA-256 hex digest for the provided key.
func HashOpsKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// InsertOpsKey stores a hashed ops API key. KeyHash must already be hashed.
func (r Repo) InsertOpsKey(ctx context.Context, key domain.OpsKey) error {
	if key.ID == "" {
		return errors.New("id required")
	}
	if key.KeyHash == "" {
		return errors.New("key_hash required")
	}
	if key.CreatedAt == "" {
		key.CreatedAt = r.timestamp()
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO ops_keys(id, name, key_hash, created_at) VALUES (?,?,?,?)`,
		key.ID, nullable(key.Name), key.KeyHash, key.CreatedAt)
	return err
}

// GetOpsKeyByHash returns an ops key by its hashed value.
func (r Repo) GetOpsKeyByHash(ctx context.Context, hash string) (domain.OpsKey, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id, COALESCE(name,''), key_hash, created_at FROM ops_keys WHERE key_hash=? LIMIT 1`, hash)
	var key domain.OpsKey
	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &key.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.OpsKey{}, ErrNotFound
	}
	return key, err
}

// ListOpsKeys returns ops keys newest-first.
func (r Repo) ListOpsKeys(ctx context.Context) ([]domain.OpsKey, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, COALESCE(name,''), key_hash, created_at FROM ops_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []domain.OpsKey
	for rows.Next() {
		var key domain.OpsKey
		if err := rows.Scan(&key.ID, &key.Name, &key.KeyHash, &key.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteOpsKey deletes an ops key by ID.
func (r Repo) DeleteOpsKey(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM ops_keys WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

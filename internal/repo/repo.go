// Package repo is the local SQLite store: the resumable survey draft, the
// backup slot for failed submissions, and the event journal queries.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"moveline/internal/domain"
)

type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var ErrNotFound = errors.New("not found")

// BackupKey is the single slot for the most recent failed submission. Each
// failure overwrites it; only the latest payload is retained.
const BackupKey = "backup_inventory"

// DraftKey identifies the one active survey draft per workspace.
const DraftKey = "current"

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// SaveDraft upserts a survey draft snapshot.
func (r Repo) SaveDraft(ctx context.Context, id string, payload []byte) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO drafts(id,payload_json,updated_at) VALUES (?,?,?)
		 ON CONFLICT(id) DO UPDATE SET payload_json=excluded.payload_json, updated_at=excluded.updated_at`,
		id, string(payload), r.now().UTC().Format(time.RFC3339))
	return err
}

// LoadDraft returns the stored draft snapshot.
func (r Repo) LoadDraft(ctx context.Context, id string) ([]byte, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT payload_json FROM drafts WHERE id=?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

// DeleteDraft removes a draft; deleting a missing draft is not an error.
func (r Repo) DeleteDraft(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM drafts WHERE id=?`, id)
	return err
}

// SaveBackup overwrites the failed-submission slot with a new payload.
func (r Repo) SaveBackup(ctx context.Context, payload []byte) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO backups(key,payload_json,saved_at) VALUES (?,?,?)
		 ON CONFLICT(key) DO UPDATE SET payload_json=excluded.payload_json, saved_at=excluded.saved_at`,
		BackupKey, string(payload), r.now().UTC().Format(time.RFC3339))
	return err
}

// LoadBackup returns the staged payload and when it was saved.
func (r Repo) LoadBackup(ctx context.Context) ([]byte, string, error) {
	var payload, savedAt string
	err := r.DB.QueryRowContext(ctx, `SELECT payload_json, saved_at FROM backups WHERE key=?`, BackupKey).Scan(&payload, &savedAt)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return []byte(payload), savedAt, nil
}

// DeleteBackup clears the slot, typically after a manual re-submission.
func (r Repo) DeleteBackup(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM backups WHERE key=?`, BackupKey)
	return err
}

// ListEvents returns the newest journal entries, most recent first.
func (r Repo) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, ts, type, COALESCE(entity_id,''), payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

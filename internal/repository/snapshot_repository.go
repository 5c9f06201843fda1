package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clockko/focus/internal/model"
)

const pausedFocusSnapshot = "paused_focus"

// SnapshotRepository keeps small named JSON documents describing timer state
// that has no home in the sessions table.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Put(ctx context.Context, name string, payload []byte) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_snapshots (name, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		name,
		string(payload),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", name, err)
	}
	return nil
}

func (r *SnapshotRepository) Get(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(
		ctx,
		`SELECT payload FROM timer_snapshots WHERE name = ?`,
		name,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot %s: %w", name, err)
	}
	return []byte(payload), nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timer_snapshots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

func (r *SnapshotRepository) SavePausedFocus(ctx context.Context, snapshot model.PausedFocusSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode paused focus snapshot: %w", err)
	}
	return r.Put(ctx, pausedFocusSnapshot, payload)
}

// LoadPausedFocus returns nil without error when no snapshot is stored.
func (r *SnapshotRepository) LoadPausedFocus(ctx context.Context) (*model.PausedFocusSnapshot, error) {
	payload, err := r.Get(ctx, pausedFocusSnapshot)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot model.PausedFocusSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decode paused focus snapshot: %w", err)
	}
	if snapshot.Session.ID == "" {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *SnapshotRepository) ClearPausedFocus(ctx context.Context) error {
	return r.Delete(ctx, pausedFocusSnapshot)
}

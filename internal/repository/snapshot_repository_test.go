package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockko/focus/internal/db"
	"clockko/focus/internal/model"
	"clockko/focus/migrations"
)

func newSnapshotRepository(t *testing.T) *SnapshotRepository {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database, migrations.FS))
	return NewSnapshotRepository(database)
}

func TestPausedFocusSnapshotLifecycle(t *testing.T) {
	repo := newSnapshotRepository(t)
	ctx := context.Background()

	snapshot, err := repo.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	saved := model.PausedFocusSnapshot{
		Session: model.Session{
			ID:              "focus-1",
			Kind:            model.KindFocus,
			Status:          model.StatusPaused,
			PlannedDuration: 25,
			StartTime:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		TimeLeftSeconds: 1400,
		SavedAt:         time.Date(2026, 3, 2, 9, 2, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SavePausedFocus(ctx, saved))

	saved.TimeLeftSeconds = 1300
	require.NoError(t, repo.SavePausedFocus(ctx, saved))

	snapshot, err = repo.LoadPausedFocus(ctx)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "focus-1", snapshot.Session.ID)
	assert.Equal(t, 1300, snapshot.TimeLeftSeconds)
	assert.True(t, saved.SavedAt.Equal(snapshot.SavedAt))

	require.NoError(t, repo.ClearPausedFocus(ctx))
	require.NoError(t, repo.ClearPausedFocus(ctx))

	snapshot, err = repo.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSnapshotWithoutSessionIsIgnored(t *testing.T) {
	repo := newSnapshotRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, pausedFocusSnapshot, []byte(`{"timeLeftSeconds":30}`)))
	snapshot, err := repo.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	require.NoError(t, repo.Put(ctx, pausedFocusSnapshot, []byte(`not json`)))
	_, err = repo.LoadPausedFocus(ctx)
	assert.Error(t, err)
}

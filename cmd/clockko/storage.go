package main

import (
	"database/sql"
	"fmt"
	"io"

	"clockko/focus/internal/config"
	"clockko/focus/internal/db"
	"clockko/focus/internal/repository"
	"clockko/focus/internal/storage/redis"
	"clockko/focus/internal/timer"
	"clockko/focus/migrations"
)

// openDatabase opens the SQLite file and brings its schema up to date.
func openDatabase(cfg config.StorageConfig) (*sql.DB, error) {
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(database, db.MigrationsFS(cfg.MigrationsDir, migrations.FS)); err != nil {
		database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return database, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openSnapshotStore(cfg config.StorageConfig, database *sql.DB) (timer.SnapshotStore, io.Closer, error) {
	switch cfg.SnapshotBackend {
	case "", "sqlite":
		return repository.NewSnapshotRepository(database), nopCloser{}, nil
	case "redis":
		store, err := redis.Open(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported snapshot backend: %s", cfg.SnapshotBackend)
	}
}

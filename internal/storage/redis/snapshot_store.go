// Package redis keeps the paused-focus snapshot in Redis so that several
// timer processes sharing one session database agree on it.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clockko/focus/internal/config"
	"clockko/focus/internal/model"
)

const pausedFocusKey = "timer:paused_focus"

type SnapshotStore struct {
	client *redis.Client
	prefix string
}

// Open connects to Redis and verifies the connection.
func Open(cfg config.RedisConfig) (*SnapshotStore, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port.
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SnapshotStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

func (s *SnapshotStore) SavePausedFocus(ctx context.Context, snapshot model.PausedFocusSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode paused focus snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(pausedFocusKey), payload, 0).Err(); err != nil {
		return fmt.Errorf("save paused focus snapshot: %w", err)
	}
	return nil
}

// LoadPausedFocus returns nil without error when no snapshot is stored.
func (s *SnapshotStore) LoadPausedFocus(ctx context.Context) (*model.PausedFocusSnapshot, error) {
	payload, err := s.client.Get(ctx, s.key(pausedFocusKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load paused focus snapshot: %w", err)
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

func (s *SnapshotStore) ClearPausedFocus(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(pausedFocusKey)).Err(); err != nil {
		return fmt.Errorf("clear paused focus snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) key(name string) string {
	return s.prefix + name
}

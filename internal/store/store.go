package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/ticketboard/internal/model"
)

// ErrNoSnapshot is returned by LoadBoard when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no board snapshot")

// SnapshotStore persists a mirror of the board. It is a fallback cache
// used when the ticket API cannot be reached, never a source of truth.
type SnapshotStore interface {
	SaveBoard(ctx context.Context, state model.BoardState) error
	LoadBoard(ctx context.Context) (model.BoardState, error)

	// SavedAt returns when the current snapshot was written.
	SavedAt(ctx context.Context) (time.Time, error)

	Close() error
}

// Open builds the snapshot store selected by cfg.Backend.
func Open(cfg model.CacheConfig) (SnapshotStore, error) {
	switch cfg.Backend {
	case model.CacheBackendSQLite, "":
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating cache directory: %w", err)
			}
		}
		return NewSQLiteStore(cfg.DBPath)
	case model.CacheBackendRedis:
		return NewRedisStore(cfg.RedisAddr, cfg.RedisKey, time.Duration(cfg.RedisTTLSec)*time.Second)
	case model.CacheBackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NopStore discards every snapshot.
type NopStore struct{}

// SaveBoard implements SnapshotStore.
func (NopStore) SaveBoard(context.Context, model.BoardState) error { return nil }

// LoadBoard implements SnapshotStore.
func (NopStore) LoadBoard(context.Context) (model.BoardState, error) {
	return model.BoardState{}, ErrNoSnapshot
}

// SavedAt implements SnapshotStore.
func (NopStore) SavedAt(context.Context) (time.Time, error) {
	return time.Time{}, ErrNoSnapshot
}

// Close implements SnapshotStore.
func (NopStore) Close() error { return nil }

// Package store provides pluggable persistence for task records.
//
// All backends expose the same contract: Put replaces the full record for an
// id atomically, and a Get immediately after a successful Put from the same
// process observes the new value. Records never reference each other, so no
// cross-record transactions are needed.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrison/autopr/internal/config"
	"github.com/harrison/autopr/internal/models"
)

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = errors.New("task not found")

// Store is the persistence contract for task records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put persists a complete record snapshot, replacing any previous one.
	Put(ctx context.Context, rec models.TaskRecord) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (models.TaskRecord, error)

	// List returns all persisted records in no particular order.
	List(ctx context.Context) ([]models.TaskRecord, error)

	// Close releases backend resources.
	Close() error
}

// Open constructs the store selected by cfg.Store.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StoreFile:
		return NewFile(cfg.StateFile)
	case config.StoreRedis:
		return NewRedis(cfg.RedisAddr, cfg.RedisDB)
	case config.StoreSQLite:
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

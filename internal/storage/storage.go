package storage

import (
	"context"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Device snapshot
	CurrentSnapshot(ctx context.Context) (domain.Snapshot, error)
	// ReplaceSnapshot swaps the whole persisted device set for s. Either every
	// device of s is visible afterwards or the previous set is left untouched.
	ReplaceSnapshot(ctx context.Context, s domain.Snapshot) error
	CountDevices(ctx context.Context) (int, error)

	// Sync runs
	RecordSyncRun(ctx context.Context, run *domain.SyncResult) error
	ListSyncRuns(ctx context.Context, limit, offset int) ([]*domain.SyncResult, error)
	PruneSyncRuns(ctx context.Context, keep int) error
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
	"github.com/bcnelson/oxidized-inventory-sync/internal/storage"
)

// Store is an in-memory implementation of storage.Storage.
// Intended for testing and ephemeral deployments.
type Store struct {
	mu      sync.RWMutex
	devices domain.Snapshot
	runs    map[string]*domain.SyncResult

	// Replaces counts successful ReplaceSnapshot calls.
	replaces int
}

// Ensure Store implements Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		devices: domain.Snapshot{},
		runs:    make(map[string]*domain.SyncResult),
	}
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}

// CurrentSnapshot returns a copy of the stored devices.
func (s *Store) CurrentSnapshot(ctx context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.devices), nil
}

// ReplaceSnapshot swaps the stored devices for a copy of snap.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := copySnapshot(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = next
	s.replaces++
	return nil
}

// CountDevices returns the number of stored devices.
func (s *Store) CountDevices(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices), nil
}

// Replaces reports how many times the snapshot has been replaced.
func (s *Store) Replaces() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaces
}

// RecordSyncRun stores a copy of run.
func (s *Store) RecordSyncRun(ctx context.Context, run *domain.SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("%w: sync run %s", domain.ErrAlreadyExists, run.ID)
	}
	r := *run
	s.runs[run.ID] = &r
	return nil
}

// ListSyncRuns returns runs newest first.
func (s *Store) ListSyncRuns(ctx context.Context, limit, offset int) ([]*domain.SyncResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.sortedRuns()
	if offset >= len(runs) {
		return []*domain.SyncResult{}, nil
	}
	runs = runs[offset:]
	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}

	result := make([]*domain.SyncResult, len(runs))
	for i, r := range runs {
		c := *r
		result[i] = &c
	}
	return result, nil
}

// PruneSyncRuns keeps only the newest keep runs.
func (s *Store) PruneSyncRuns(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := s.sortedRuns()
	for _, r := range runs[min(keep, len(runs)):] {
		delete(s.runs, r.ID)
	}
	return nil
}

// sortedRuns must be called with s.mu held.
func (s *Store) sortedRuns() []*domain.SyncResult {
	runs := make([]*domain.SyncResult, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}

func copySnapshot(src domain.Snapshot) domain.Snapshot {
	dst := make(domain.Snapshot, len(src))
	for ip, d := range src {
		dst[ip] = d
	}
	return dst
}

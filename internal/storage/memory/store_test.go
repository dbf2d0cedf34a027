package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

func TestStore_ReplaceIsolatesCallerSnapshot(t *testing.T) {
	ctx := context.Background()
	store := New()

	snap := domain.NewSnapshot(domain.Device{Name: "a", IP: "10.0.0.1", Platform: "ios", Port: 22, Username: "u", Password: "p", Group: domain.DefaultGroup})
	if err := store.ReplaceSnapshot(ctx, snap); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}
	snap.Add(domain.Device{IP: "10.0.0.2"})

	got, _ := store.CurrentSnapshot(ctx)
	if got.Len() != 1 {
		t.Errorf("store should not see later caller mutations, got %d devices", got.Len())
	}
	got.Add(domain.Device{IP: "10.0.0.3"})
	if n, _ := store.CountDevices(ctx); n != 1 {
		t.Errorf("returned snapshot should be a copy, store has %d devices", n)
	}
	if store.Replaces() != 1 {
		t.Errorf("expected 1 replace, got %d", store.Replaces())
	}
}

func TestStore_ReplaceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := New()
	if err := store.ReplaceSnapshot(ctx, domain.Snapshot{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStore_SyncRuns(t *testing.T) {
	ctx := context.Background()
	store := New()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		run := &domain.SyncResult{ID: id, StartedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.RecordSyncRun(ctx, run); err != nil {
			t.Fatalf("RecordSyncRun: %v", err)
		}
	}
	if err := store.RecordSyncRun(ctx, &domain.SyncResult{ID: "a"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	runs, _ := store.ListSyncRuns(ctx, 2, 1)
	if len(runs) != 2 || runs[0].ID != "b" || runs[1].ID != "a" {
		t.Errorf("unexpected page %v", runs)
	}
	if runs, _ := store.ListSyncRuns(ctx, 10, 5); len(runs) != 0 {
		t.Errorf("offset past end should be empty, got %d", len(runs))
	}

	if err := store.PruneSyncRuns(ctx, 2); err != nil {
		t.Fatalf("PruneSyncRuns: %v", err)
	}
	runs, _ = store.ListSyncRuns(ctx, 0, 0)
	if len(runs) != 2 || runs[0].ID != "c" {
		t.Errorf("expected newest two runs to remain, got %v", runs)
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
	"github.com/bcnelson/oxidized-inventory-sync/internal/inventory"
	"github.com/bcnelson/oxidized-inventory-sync/internal/netbox"
	"github.com/bcnelson/oxidized-inventory-sync/internal/storage"
)

// DeviceLister supplies the snapshot served to Oxidized.
type DeviceLister interface {
	ListDevices(ctx context.Context) (domain.Snapshot, error)
}

// StoreLister serves the last committed snapshot.
type StoreLister struct {
	store storage.Storage
}

// NewStoreLister creates a lister backed by store.
func NewStoreLister(store storage.Storage) *StoreLister {
	return &StoreLister{store: store}
}

func (l *StoreLister) ListDevices(ctx context.Context) (domain.Snapshot, error) {
	snap, err := l.store.CurrentSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSink, err)
	}
	return snap, nil
}

// LiveLister queries the source on every request. Concurrent requests share
// a single fetch.
type LiveLister struct {
	source  netbox.Source
	timeout time.Duration
	group   singleflight.Group
}

// NewLiveLister creates a lister that fetches from source, bounding each
// shared fetch by timeout.
func NewLiveLister(source netbox.Source, timeout time.Duration) *LiveLister {
	return &LiveLister{source: source, timeout: timeout}
}

func (l *LiveLister) ListDevices(ctx context.Context) (domain.Snapshot, error) {
	v, err, _ := l.group.Do("devices", func() (any, error) {
		// The fetch is shared, so it must outlive any single caller.
		fetchCtx := context.WithoutCancel(ctx)
		if l.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, l.timeout)
			defer cancel()
		}

		records, err := l.source.FetchDevices(fetchCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSourceFetch, err)
		}
		result, err := inventory.NormalizeAll(records)
		if err != nil {
			return nil, err
		}
		return result.Snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.Snapshot), nil
}

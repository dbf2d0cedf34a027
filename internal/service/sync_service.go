package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
	"github.com/bcnelson/oxidized-inventory-sync/internal/inventory"
	"github.com/bcnelson/oxidized-inventory-sync/internal/metrics"
	"github.com/bcnelson/oxidized-inventory-sync/internal/netbox"
	"github.com/bcnelson/oxidized-inventory-sync/internal/notify"
	"github.com/bcnelson/oxidized-inventory-sync/internal/storage"
)

const recordRunTimeout = 5 * time.Second

// Options tunes a SyncService.
type Options struct {
	// ServeMode is reported in status output.
	ServeMode string
	// HistoryKeep bounds the stored sync runs. Zero keeps everything.
	HistoryKeep int
}

// SyncService reconciles the stored device snapshot with the source.
type SyncService struct {
	source   netbox.Source
	store    storage.Storage
	notifier notify.Notifier
	logger   *zap.Logger
	opts     Options
	now      func() time.Time

	running atomic.Bool

	mu     sync.RWMutex
	status domain.SyncStatus
}

// NewSyncService creates a new SyncService.
func NewSyncService(source netbox.Source, store storage.Storage, notifier notify.Notifier, logger *zap.Logger, opts Options) *SyncService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		source:   source,
		store:    store,
		notifier: notifier,
		logger:   logger.Named("sync"),
		opts:     opts,
		now:      time.Now,
	}
}

// RunCycle performs one reconciliation cycle. Only one cycle runs at a time;
// a concurrent call returns domain.ErrSyncInProgress without doing anything.
//
// The returned result is non-nil whenever the cycle started, including on
// failure.
func (s *SyncService) RunCycle(ctx context.Context) (*domain.SyncResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer s.running.Store(false)

	result := &domain.SyncResult{
		ID:        uuid.New().String(),
		StartedAt: s.now(),
	}
	log := s.logger.With(zap.String("sync_id", result.ID))

	err := s.cycle(ctx, result, log)
	result.FinishedAt = s.now()
	if err != nil {
		result.Status = domain.SyncStatusFailed
		result.Error = err.Error()
		log.Error("sync cycle failed", zap.Error(err), zap.Duration("duration", result.Duration()))
	} else {
		log.Info("sync cycle finished",
			zap.String("status", result.Status),
			zap.Int("fetched", result.Fetched),
			zap.Int("skipped", result.Skipped),
			zap.Int("devices", result.Devices),
			zap.Duration("duration", result.Duration()))
	}

	metrics.RecordCycle(result.Status, result.Duration())
	s.recordStatus(result, err)
	s.recordRun(ctx, result, log)

	return result, err
}

func (s *SyncService) cycle(ctx context.Context, result *domain.SyncResult, log *zap.Logger) error {
	records, err := s.source.FetchDevices(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceFetch, err)
	}

	normalized, err := inventory.NormalizeAll(records)
	if err != nil {
		return err
	}
	result.Fetched = normalized.Fetched
	result.Skipped = normalized.Skipped
	result.Duplicates = len(normalized.Duplicates)
	result.Devices = normalized.Snapshot.Len()

	metrics.RecordSkipped("incomplete", normalized.Skipped)
	metrics.RecordSkipped("duplicate", len(normalized.Duplicates))
	if len(normalized.Duplicates) > 0 {
		log.Warn("duplicate device addresses skipped", zap.Strings("addresses", normalized.Duplicates))
	}

	current, err := s.store.CurrentSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSink, err)
	}

	if !domain.Differs(current, normalized.Snapshot) {
		result.Status = domain.SyncStatusUnchanged
		metrics.Devices.Set(float64(current.Len()))
		return nil
	}

	if err := s.store.ReplaceSnapshot(ctx, normalized.Snapshot); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSink, err)
	}
	result.Status = domain.SyncStatusReplaced
	metrics.Devices.Set(float64(result.Devices))
	log.Info("device snapshot replaced", zap.Int("previous", current.Len()), zap.Int("devices", result.Devices))

	// The snapshot is committed; a failed notification is reported but never
	// undoes it.
	change := notify.Change{SyncID: result.ID, Devices: result.Devices, ChangedAt: s.now()}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), change); err != nil {
		result.NotifyError = err.Error()
	} else {
		result.Notified = true
	}
	return nil
}

func (s *SyncService) recordStatus(result *domain.SyncResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.status
	finished := result.FinishedAt
	st.LastAttempt = &finished
	st.LastResult = result
	st.TotalSyncs++

	if err != nil {
		st.LastError = err.Error()
		st.ConsecutiveFailures++
		st.TotalFailures++
		return
	}

	st.LastError = ""
	st.ConsecutiveFailures = 0
	st.LastSuccess = &finished
	if result.Status == domain.SyncStatusReplaced {
		st.TotalChanges++
		st.LastChange = &finished
	}
}

func (s *SyncService) recordRun(ctx context.Context, result *domain.SyncResult, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordRunTimeout)
	defer cancel()

	if err := s.store.RecordSyncRun(ctx, result); err != nil {
		log.Warn("failed to record sync run", zap.Error(err))
		return
	}
	if s.opts.HistoryKeep > 0 {
		if err := s.store.PruneSyncRuns(ctx, s.opts.HistoryKeep); err != nil {
			log.Warn("failed to prune sync runs", zap.Error(err))
		}
	}
}

// Status returns a summary of recent cycles.
func (s *SyncService) Status(ctx context.Context) domain.SyncStatus {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	st.Source = s.source.Name()
	st.ServeMode = s.opts.ServeMode
	st.Running = s.running.Load()
	st.Healthy = st.LastSuccess != nil && st.ConsecutiveFailures == 0

	if n, err := s.store.CountDevices(ctx); err == nil {
		st.DeviceCount = n
	} else {
		s.logger.Warn("failed to count devices", zap.Error(err))
	}
	return st
}

// History returns recorded sync runs, newest first.
func (s *SyncService) History(ctx context.Context, limit, offset int) ([]*domain.SyncResult, error) {
	runs, err := s.store.ListSyncRuns(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSink, err)
	}
	return runs, nil
}

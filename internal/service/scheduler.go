package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
	"github.com/bcnelson/oxidized-inventory-sync/internal/logging"
)

// Scheduler runs reconciliation cycles on a fixed interval.
type Scheduler struct {
	svc     *SyncService
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

// NewScheduler creates a scheduler firing every interval. Each cycle is
// bounded by timeout. A tick that arrives while a cycle is still running is
// skipped.
func NewScheduler(svc *SyncService, interval, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got %v", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := logging.CronLogger(logger)

	s := &Scheduler{
		svc:     svc,
		timeout: timeout,
		logger:  logger.Named("scheduler"),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := s.cron.AddFunc("@every "+interval.String(), s.runOnce); err != nil {
		return nil, fmt.Errorf("scheduling sync: %w", err)
	}
	return s, nil
}

// Start runs one cycle right away and then starts the interval schedule.
// Cancelling ctx aborts any in-flight cycle.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.runOnce()
	}()
	s.cron.Start()

	s.logger.Info("sync scheduler started", zap.Duration("timeout", s.timeout))
}

// Stop halts the schedule and waits for the running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}

	if _, err := s.svc.RunCycle(ctx); errors.Is(err, domain.ErrSyncInProgress) {
		s.logger.Debug("skipping tick, sync already in progress")
	}
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// RetentionSchedulerConfig holds configuration for the sync record retention scheduler
type RetentionSchedulerConfig struct {
	// Retention is the age after which sync records are purged; 0 disables the scheduler
	Retention time.Duration

	// Interval is the time between purge runs
	Interval time.Duration

	// Timeout bounds a single purge run
	Timeout time.Duration
}

// DefaultRetentionSchedulerConfig returns default configuration for retention
func DefaultRetentionSchedulerConfig(retention time.Duration) RetentionSchedulerConfig {
	return RetentionSchedulerConfig{
		Retention: retention,
		Interval:  time.Hour,
		Timeout:   5 * time.Minute,
	}
}

// Validate checks the configuration
func (c RetentionSchedulerConfig) Validate() error {
	if c.Retention < 0 {
		return fmt.Errorf("%w: retention cannot be negative", ErrInvalidConfig)
	}
	if c.Retention > 0 && c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// RetentionScheduler periodically deletes sync records older than the retention window
type RetentionScheduler struct {
	records   fulfillment.SyncRecordRepository
	logger    *zap.Logger
	config    RetentionSchedulerConfig
	now       func() time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRetentionScheduler creates a new retention scheduler
func NewRetentionScheduler(
	records fulfillment.SyncRecordRepository,
	logger *zap.Logger,
	config RetentionSchedulerConfig,
) (*RetentionScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionScheduler{
		records: records,
		logger:  logger.Named("retention"),
		config:  config,
		now:     time.Now,
	}, nil
}

// Start starts the purge loop. A scheduler without retention stays idle.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.config.Retention == 0 {
		s.mu.Unlock()
		s.logger.Info("Sync record retention is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx)

	s.logger.Info("Sync record retention scheduler started",
		zap.Duration("retention", s.config.Retention),
		zap.Duration("interval", s.config.Interval),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *RetentionScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync record retention scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync record retention scheduler stop timed out")
		return ctx.Err()
	}
}

// run purges once at start and then on every tick
func (s *RetentionScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.purge(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

// purge deletes every record older than the retention window
func (s *RetentionScheduler) purge(ctx context.Context) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	cutoff := s.now().Add(-s.config.Retention)
	start := time.Now()
	deleted, err := s.records.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Sync record purge failed",
			zap.Time("cutoff", cutoff),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Sync record purge completed",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted_count", deleted),
		zap.Duration("duration", time.Since(start)),
	)
}

// TriggerImmediatePurge runs a purge now without waiting for the next tick
func (s *RetentionScheduler) TriggerImmediatePurge(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.purge(ctx)
	}()
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *RetentionScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

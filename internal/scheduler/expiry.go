package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PendingExpirer cancels pending bookings that were never answered.
type PendingExpirer interface {
	ExpireStalePending(ctx context.Context) (int, error)
}

// ExpiryJob runs the pending-booking sweep on a cron schedule. Runs never overlap.
type ExpiryJob struct {
	cron     *cron.Cron
	expirer  PendingExpirer
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewExpiryJob creates a job for the given cron spec ("@every 1m", "*/5 * * * *", ...).
func NewExpiryJob(expirer PendingExpirer, schedule string, logger *zap.Logger) (*ExpiryJob, error) {
	j := &ExpiryJob{
		cron:     cron.New(),
		expirer:  expirer,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger.Named("expiry"),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule until ctx is cancelled, then waits for an in-flight sweep.
func (j *ExpiryJob) Start(ctx context.Context) {
	j.logger.Info("expiry job started", zap.String("schedule", j.schedule))
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
	j.logger.Info("expiry job stopped")
}

// RunOnce performs one sweep. It returns the number of bookings expired; a sweep that is
// already in progress makes it return 0 immediately.
func (j *ExpiryJob) RunOnce(ctx context.Context) int {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.logger.Debug("previous sweep still running, skipping")
		return 0
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.expirer.ExpireStalePending(ctx)
	if err != nil {
		j.logger.Error("pending expiry sweep failed", zap.Int("expired", n), zap.Error(err))
		return n
	}
	if n > 0 {
		j.logger.Info("expired stale pending bookings", zap.Int("expired", n))
	}
	return n
}

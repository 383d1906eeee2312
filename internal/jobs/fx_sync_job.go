package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// FxSyncJobName is the name of the reference FX rate sync job
const FxSyncJobName = "fx_sync"

// FxSyncService defines the interface for syncing reference FX rates.
type FxSyncService interface {
	// SyncFromWarehouse refreshes reference rates from the finance
	// warehouse. Returns the number of rates refreshed.
	SyncFromWarehouse(ctx context.Context) (int, error)
}

// FxSyncJob pulls the daily reference FX rates published by the finance
// warehouse into the local fx_rates table.
type FxSyncJob struct {
	service FxSyncService
	logger  *zap.Logger
	timeout time.Duration
}

// NewFxSyncJob creates the FX rate sync job.
func NewFxSyncJob(service FxSyncService, logger *zap.Logger, timeout time.Duration) *FxSyncJob {
	return &FxSyncJob{
		service: service,
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes the sync. Called by the scheduler.
func (j *FxSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	synced, err := j.service.SyncFromWarehouse(ctx)
	if err != nil {
		j.logger.Error("fx rate sync failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("fx rate sync completed",
		zap.Int("synced", synced),
		zap.Duration("duration", time.Since(start)))
}

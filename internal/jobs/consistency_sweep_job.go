package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ConsistencySweepJobName is the name of the nightly consistency sweep job
const ConsistencySweepJobName = "consistency_sweep"

// ConsistencyService defines the sweep entry point. The interface keeps the
// job decoupled from the service package.
type ConsistencyService interface {
	// EnforceConsistency moves back opportunities whose product has lost
	// all supplier price entries. Returns the number fixed.
	EnforceConsistency(ctx context.Context) (int, error)
}

// ConsistencySweepJob re-checks the supplier rule over the whole pipeline.
// The triggers keep things consistent in normal operation; the sweep exists
// for drift they cannot see, such as rows edited directly in the database.
type ConsistencySweepJob struct {
	service ConsistencyService
	logger  *zap.Logger
	timeout time.Duration
}

// NewConsistencySweepJob creates the nightly sweep job.
func NewConsistencySweepJob(service ConsistencyService, logger *zap.Logger, timeout time.Duration) *ConsistencySweepJob {
	return &ConsistencySweepJob{
		service: service,
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes the sweep. Called by the scheduler.
func (j *ConsistencySweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	fixed, err := j.service.EnforceConsistency(ctx)
	if err != nil {
		j.logger.Error("consistency sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("consistency sweep completed",
		zap.Int("fixed", fixed),
		zap.Duration("duration", time.Since(start)))
}

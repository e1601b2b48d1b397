package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
)

// Background job types handled by MaintenanceWorker.
const (
	JobCompletionSweep    = "completion_sweep"
	JobPerformanceRefresh = "performance_refresh"
)

type completionSweeper interface {
	CompleteElapsed(ctx context.Context) (*dto.CompletionSweepResult, error)
}

type reliabilityRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// MaintenanceWorker bridges queue jobs to the sweep and the reliability refresh.
// Both jobs are idempotent, so queue retries are safe.
type MaintenanceWorker struct {
	sweeper   completionSweeper
	refresher reliabilityRefresher
	logger    *zap.Logger
}

// NewMaintenanceWorker constructs a worker.
func NewMaintenanceWorker(sweeper completionSweeper, refresher reliabilityRefresher, logger *zap.Logger) *MaintenanceWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceWorker{sweeper: sweeper, refresher: refresher, logger: logger}
}

// Handle processes a queue job.
func (w *MaintenanceWorker) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobCompletionSweep:
		result, err := w.sweeper.CompleteElapsed(ctx)
		if err != nil {
			return err
		}
		w.logger.Debug("completion sweep finished", zap.String("job_id", job.ID), zap.Int("completed", result.Completed))
		return nil
	case JobPerformanceRefresh:
		count, err := w.refresher.RefreshAll(ctx)
		if err != nil {
			return err
		}
		w.logger.Debug("performance refresh finished", zap.String("job_id", job.ID), zap.Int("teachers", count))
		return nil
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

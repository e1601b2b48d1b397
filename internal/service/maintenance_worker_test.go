package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
)

type sweeperStub struct {
	calls int
	err   error
}

func (s *sweeperStub) CompleteElapsed(ctx context.Context) (*dto.CompletionSweepResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &dto.CompletionSweepResult{Cutoff: time.Now(), Completed: 2}, nil
}

type refresherStub struct {
	calls int
	err   error
}

func (s *refresherStub) RefreshAll(ctx context.Context) (int, error) {
	s.calls++
	return 4, s.err
}

func TestMaintenanceWorkerDispatchesByType(t *testing.T) {
	sweeper := &sweeperStub{}
	refresher := &refresherStub{}
	worker := NewMaintenanceWorker(sweeper, refresher, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "1", Type: JobCompletionSweep}))
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "2", Type: JobPerformanceRefresh}))
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 1, refresher.calls)

	assert.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "3", Type: "reindex"}))
}

func TestMaintenanceWorkerPropagatesFailures(t *testing.T) {
	worker := NewMaintenanceWorker(&sweeperStub{err: errors.New("db down")}, &refresherStub{err: errors.New("redis down")}, nil)

	assert.Error(t, worker.Handle(context.Background(), jobs.Job{Type: JobCompletionSweep}))
	assert.Error(t, worker.Handle(context.Background(), jobs.Job{Type: JobPerformanceRefresh}))
}

func TestMaintenanceWorkerRunsOnQueue(t *testing.T) {
	sweeper := &sweeperStub{}
	worker := NewMaintenanceWorker(sweeper, &refresherStub{}, zap.NewNop())
	done := make(chan struct{})
	queue := jobs.NewQueue("maintenance", func(ctx context.Context, job jobs.Job) error {
		defer close(done)
		return worker.Handle(ctx, job)
	}, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(jobs.Job{Type: JobCompletionSweep}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
	assert.Equal(t, 1, sweeper.calls)
}

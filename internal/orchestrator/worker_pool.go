package orchestrator

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// WorkerPoolService wraps a Service so that payment submissions run on a
// bounded worker pool. Callers still block until their own submission
// finishes; the pool caps how many payments are in flight concurrently.
type WorkerPoolService struct {
	base   Service
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolService(
	base Service,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolService, error) {
	// Create a new worker pool with the specified size
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolService{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// SubmitPayment runs the submission on the worker pool and waits for its
// result. If the pool rejects the task the payment is not attempted at all.
func (s *WorkerPoolService) SubmitPayment(ctx context.Context, req *Request) *Result {
	s.logger.Info("Submitting payment to worker pool",
		"processor_id", req.ProcessorID,
		"running_workers", s.pool.Running(),
	)

	// Create a channel to receive the result of the payment submission
	resultChan := make(chan *Result, 1)

	// Create a copy of the request to avoid data races
	reqCopy := *req

	err := s.pool.Submit(func() {
		resultChan <- s.base.SubmitPayment(ctx, &reqCopy)
		close(resultChan)
	})
	if err != nil {
		s.logger.Error("Failed to submit payment to worker pool", "error", err)
		return &Result{
			Outcome: OutcomeInternalError,
			Message: "payment submission capacity exhausted",
		}
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolService) Capacity() int {
	return s.pool.Cap()
}

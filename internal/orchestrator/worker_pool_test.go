package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	mu      sync.Mutex
	calls   int
	result  *Result
	barrier chan struct{}
}

func (s *stubService) SubmitPayment(ctx context.Context, req *Request) *Result {
	if s.barrier != nil {
		<-s.barrier
	}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.result
}

func TestNewWorkerPoolService(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	svc, err := NewWorkerPoolService(&stubService{}, WorkerPoolConfig{Size: 4}, logger)
	require.NoError(t, err)
	defer svc.Shutdown()

	assert.Equal(t, 4, svc.Capacity())
	assert.Equal(t, 0, svc.Running())
}

func TestNewWorkerPoolService_InvalidSize(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_, err := NewWorkerPoolService(&stubService{}, WorkerPoolConfig{Size: -2}, logger)
	assert.Error(t, err)
}

func TestWorkerPoolService_PassesResultThrough(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	want := &Result{Outcome: OutcomeSucceeded}
	stub := &stubService{result: want}

	svc, err := NewWorkerPoolService(stub, WorkerPoolConfig{Size: 2}, logger)
	require.NoError(t, err)
	defer svc.Shutdown()

	got := svc.SubmitPayment(context.Background(), &Request{
		Amount:      decimal.RequireFromString("10.00"),
		ProcessorID: "proc-1",
		ProcessType: "one-time",
	})

	assert.Equal(t, want, got)
	assert.Equal(t, 1, stub.calls)
}

func TestWorkerPoolService_ConcurrentSubmissions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	stub := &stubService{result: &Result{Outcome: OutcomeAccepted}}

	svc, err := NewWorkerPoolService(stub, WorkerPoolConfig{Size: 3}, logger)
	require.NoError(t, err)
	defer svc.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := svc.SubmitPayment(context.Background(), &Request{
				Amount:      decimal.RequireFromString("10.00"),
				ProcessorID: "proc-1",
				ProcessType: "one-time",
			})
			assert.Equal(t, OutcomeAccepted, result.Outcome)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, stub.calls)
}

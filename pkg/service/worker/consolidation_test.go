package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/sangam-civic/sangam/pkg/service/worker"
	"github.com/sangam-civic/sangam/pkg/usecase"
)

type mockConsolidator struct {
	mu    sync.Mutex
	calls int
	opts  []usecase.ConsolidateOption
	err   error
}

func (m *mockConsolidator) Run(ctx context.Context, opt usecase.ConsolidateOption) (*usecase.ConsolidateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.opts = append(m.opts, opt)
	if m.err != nil {
		return nil, m.err
	}
	return &usecase.ConsolidateResult{}, nil
}

func (m *mockConsolidator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestConsolidationWorker_ImmediateInitialRun(t *testing.T) {
	mock := &mockConsolidator{}
	w := worker.NewConsolidationWorker(mock, 10*time.Minute, true)

	gt.NoError(t, w.Start(context.Background())).Required()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	gt.Number(t, mock.Calls()).Equal(1)
	mock.mu.Lock()
	gt.Bool(t, mock.opts[0].Prune).True()
	mock.mu.Unlock()
}

func TestConsolidationWorker_PeriodicRun(t *testing.T) {
	mock := &mockConsolidator{}
	w := worker.NewConsolidationWorker(mock, 30*time.Millisecond, false)

	gt.NoError(t, w.Start(context.Background())).Required()
	time.Sleep(150 * time.Millisecond)
	w.Stop()

	gt.Number(t, mock.Calls()).GreaterOrEqual(3)
}

func TestConsolidationWorker_KeepsRunningAfterErrors(t *testing.T) {
	mock := &mockConsolidator{err: goerr.New("firestore unavailable")}
	w := worker.NewConsolidationWorker(mock, 30*time.Millisecond, false)

	gt.NoError(t, w.Start(context.Background())).Required()
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	gt.Number(t, mock.Calls()).GreaterOrEqual(2)
}

func TestConsolidationWorker_StopsCleanly(t *testing.T) {
	mock := &mockConsolidator{}
	w := worker.NewConsolidationWorker(mock, 100*time.Millisecond, false)

	gt.NoError(t, w.Start(context.Background())).Required()
	time.Sleep(20 * time.Millisecond)

	stopStart := time.Now()
	w.Stop()
	if d := time.Since(stopStart); d > time.Second {
		t.Errorf("Stop() took too long: %v", d)
	}
}

func TestConsolidationWorker_RejectsNonPositiveInterval(t *testing.T) {
	w := worker.NewConsolidationWorker(&mockConsolidator{}, 0, false)
	gt.Error(t, w.Start(context.Background()))
}

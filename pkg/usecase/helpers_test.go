package usecase_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/usecase"
)

// mockEmbedder returns fixed vectors per text and counts calls
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]int
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func newMockEmbedder(vectors map[string][]float32) *mockEmbedder {
	return &mockEmbedder{
		vectors: vectors,
		calls:   make(map[string]int),
	}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls[text]++
	fn := m.embedFn
	v, ok := m.vectors[text]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if !ok {
		return nil, goerr.New("no vector for text", goerr.V("text", text))
	}
	return v, nil
}

func (m *mockEmbedder) CallCount(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

func (m *mockEmbedder) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// mockSummarizer labels a cluster after its first member or fails
type mockSummarizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockSummarizer) Summarize(ctx context.Context, members []*model.Petition) (*model.ThreadSummary, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return &model.ThreadSummary{
		Label:   "Thread: " + members[0].Title,
		Summary: "Generated summary",
	}, nil
}

func (m *mockSummarizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockNotifier struct {
	mu       sync.Mutex
	notified []*model.Thread
}

func (m *mockNotifier) NotifyThreads(ctx context.Context, threads []*model.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, threads...)
	return nil
}

// syncWriteBack runs cache write-backs inline so tests can assert on the store
func syncWriteBack(t *testing.T) usecase.Dispatcher {
	return func(ctx context.Context, handler func(ctx context.Context) error) {
		if err := handler(ctx); err != nil {
			t.Logf("write-back failed: %v", err)
		}
	}
}

// planar returns a unit vector in the xy-plane at deg degrees from the x axis
func planar(deg float64) []float32 {
	rad := deg * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad)), 0}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSyncer returns queued results and reports every call on calls.
type scriptedSyncer struct {
	mu      sync.Mutex
	results []Result
	errs    []error
	calls   chan struct{}
}

func (s *scriptedSyncer) Sync(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.calls <- struct{}{} }()

	if len(s.results) == 0 {
		return Result{Done: true, Phase: PhaseIdle}, nil
	}
	result, err := s.results[0], s.errs[0]
	s.results, s.errs = s.results[1:], s.errs[1:]
	return result, err
}

func waitCalls(t *testing.T, calls <-chan struct{}, n int) {
	t.Helper()
	for i := range n {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for call %d of %d", i+1, n)
		}
	}
}

func assertNoCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
		t.Fatal("unexpected sync call")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_ReinvokesUntilDone(t *testing.T) {
	s := &scriptedSyncer{
		results: []Result{{Phase: PhaseIndexing}, {Phase: PhaseIndexing}, {Done: true, Phase: PhaseReclaiming}},
		errs:    []error{nil, nil, nil},
		calls:   make(chan struct{}, 10),
	}
	scheduler := NewScheduler(s, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- scheduler.Run(ctx) }()

	waitCalls(t, s.calls, 3)
	assertNoCall(t, s.calls)

	scheduler.Trigger()
	waitCalls(t, s.calls, 1)

	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_ErrorWaitsForNextTrigger(t *testing.T) {
	s := &scriptedSyncer{
		results: []Result{{Phase: PhaseIndexing}, {}},
		errs:    []error{nil, errors.New("upstream down")},
		calls:   make(chan struct{}, 10),
	}
	scheduler := NewScheduler(s, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = scheduler.Run(ctx) }()

	waitCalls(t, s.calls, 2)
	assertNoCall(t, s.calls)

	scheduler.Trigger()
	waitCalls(t, s.calls, 1)
}

func TestScheduler_Ticks(t *testing.T) {
	s := &scriptedSyncer{calls: make(chan struct{}, 10)}
	scheduler := NewScheduler(s, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = scheduler.Run(ctx) }()

	waitCalls(t, s.calls, 3)
}

func TestScheduler_TriggerCoalesces(t *testing.T) {
	scheduler := NewScheduler(&scriptedSyncer{}, time.Hour)

	scheduler.Trigger()
	scheduler.Trigger()
	scheduler.Trigger()

	assert.Len(t, scheduler.trigger, 1)
}

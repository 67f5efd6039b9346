package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunChunked_Barrier(t *testing.T) {
	const n, size = 7, 3

	var (
		mu       sync.Mutex
		finished = make(map[int]bool)
		inFlight atomic.Int32
		peak     atomic.Int32
	)

	err := RunChunked(context.Background(), n, size, func(ctx context.Context, i int) error {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}

		mu.Lock()
		defer mu.Unlock()
		batch := i / size
		for j := 0; j < batch*size; j++ {
			if !finished[j] {
				t.Errorf("job %d started before job %d of an earlier batch finished", i, j)
			}
		}
		finished[i] = true
		return nil
	})

	if err != nil {
		t.Fatalf("RunChunked() error = %v", err)
	}
	if len(finished) != n {
		t.Errorf("finished = %d, want %d", len(finished), n)
	}
	if peak.Load() > size {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), size)
	}
}

func TestRunChunked_StopsAfterFailingBatch(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	err := RunChunked(context.Background(), 6, 2, func(ctx context.Context, i int) error {
		calls.Add(1)
		if i == 1 {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("RunChunked() error = %v, want boom", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestRunChunked_Empty(t *testing.T) {
	err := RunChunked(context.Background(), 0, 4, func(ctx context.Context, i int) error {
		t.Error("fn should not be called")
		return nil
	})
	if err != nil {
		t.Errorf("RunChunked() error = %v", err)
	}
}

func TestRunChunked_NonPositiveSize(t *testing.T) {
	var calls atomic.Int32
	_ = RunChunked(context.Background(), 3, 0, func(ctx context.Context, i int) error {
		calls.Add(1)
		return nil
	})
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

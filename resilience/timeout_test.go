package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunWithin_Completes(t *testing.T) {
	want := errors.New("boom")
	err := RunWithin(context.Background(), time.Second, func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("RunWithin() error = %v, want %v", err, want)
	}
}

func TestRunWithin_Expires(t *testing.T) {
	err := RunWithin(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("RunWithin() error = %v, want ErrTimeout", err)
	}
}

func TestRunWithin_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunWithin(ctx, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithin() error = %v, want context.Canceled", err)
	}
}

func TestBounded_PassesAttempt(t *testing.T) {
	var got int
	op := bounded(time.Second, func(_ context.Context, attempt int) error {
		got = attempt
		return nil
	})
	if err := op(context.Background(), 3); err != nil {
		t.Fatalf("op: %v", err)
	}
	if got != 3 {
		t.Errorf("attempt = %d, want 3", got)
	}
}

func TestRunWithin_WaitsForFn(t *testing.T) {
	returned := false
	err := RunWithin(context.Background(), 10*time.Millisecond, func(context.Context) error {
		time.Sleep(30 * time.Millisecond)
		returned = true
		return errors.New("late")
	})
	if !returned {
		t.Fatal("RunWithin returned before fn")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("RunWithin() error = %v, want ErrTimeout", err)
	}
}

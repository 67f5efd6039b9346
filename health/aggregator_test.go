package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fixed(name string, s Status) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		return Result{Status: s}
	})
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register(fixed("a", StatusHealthy))
	agg.Register(fixed("b", StatusDegraded))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if got := OverallStatus(results); got != StatusDegraded {
		t.Errorf("OverallStatus = %v, want degraded", got)
	}
	for name, r := range results {
		if r.Timestamp.IsZero() {
			t.Errorf("%s: zero timestamp", name)
		}
	}
}

func TestAggregator_RegisterReplaces(t *testing.T) {
	agg := NewAggregator()
	agg.Register(fixed("a", StatusUnhealthy))
	agg.Register(fixed("b", StatusHealthy))
	agg.Register(fixed("a", StatusHealthy))

	if diff := cmp.Diff([]string{"a", "b"}, agg.CheckerNames()); diff != "" {
		t.Errorf("CheckerNames mismatch (-want +got):\n%s", diff)
	}
	if got := OverallStatus(agg.CheckAll(context.Background())); got != StatusHealthy {
		t.Errorf("OverallStatus = %v, want healthy", got)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(20 * time.Millisecond)
	agg.Register(NewCheckerFunc("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Healthy("late")
	}))

	r, err := agg.Check(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want timeout", r)
	}
}

func TestAggregator_CheckUnknown(t *testing.T) {
	_, err := NewAggregator().Check(context.Background(), "missing")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("err = %v, want ErrCheckerNotFound", err)
	}
}

func TestOverallStatus_Empty(t *testing.T) {
	if got := OverallStatus(nil); got != StatusHealthy {
		t.Errorf("OverallStatus(nil) = %v", got)
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(9):       "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	var runs int32
	s := New(50*time.Millisecond, time.Second, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return atomic.LoadInt32(&runs) >= 2 })
}

func TestSchedulerSurvivesFailures(t *testing.T) {
	var runs int32
	s := New(50*time.Millisecond, time.Second, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("upstream down")
	})
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return atomic.LoadInt32(&runs) >= 2 })
}

func TestSchedulerJobHasDeadline(t *testing.T) {
	got := make(chan bool, 1)
	s := New(time.Hour, 50*time.Millisecond, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		select {
		case got <- ok:
		default:
		}
		return nil
	})
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	select {
	case ok := <-got:
		if !ok {
			t.Fatalf("expected job context to carry a deadline")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

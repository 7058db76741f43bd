package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTasksUntilStopped(t *testing.T) {
	var runs int32
	s := New(nil)
	s.Add(Task{Name: "tick", Interval: 5 * time.Millisecond, RunOnStart: true, Fn: func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, after, atomic.LoadInt32(&runs))
}

func TestSchedulerRunOnceSurvivesFailures(t *testing.T) {
	var calls []string
	s := New(nil)
	s.Add(Task{Name: "fails", Interval: time.Hour, Fn: func(ctx context.Context) error {
		calls = append(calls, "fails")
		return errors.New("boom")
	}})
	s.Add(Task{Name: "panics", Interval: time.Hour, Fn: func(ctx context.Context) error {
		calls = append(calls, "panics")
		panic("unexpected")
	}})
	s.Add(Task{Name: "ok", Interval: time.Hour, Fn: func(ctx context.Context) error {
		calls = append(calls, "ok")
		return nil
	}})
	s.Add(Task{Name: "ignored", Interval: 0, Fn: func(ctx context.Context) error { return nil }})

	s.RunOnce(context.Background())
	require.Equal(t, []string{"fails", "panics", "ok"}, calls)
}

package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relloyd/batchetl/logger"
)

type recordingNotifier struct {
	dates []string
	errs  []error
}

func (n *recordingNotifier) Notify(ctx context.Context, date string, err error) {
	n.dates = append(n.dates, date)
	n.errs = append(n.errs, err)
}

func newTestScheduler(t *testing.T, retries int, run runFunc) (*Scheduler, *recordingNotifier, *[]time.Duration) {
	t.Helper()
	n := &recordingNotifier{}
	s, err := NewScheduler(logger.NewLogger("batchetl", "error", false), SchedulerConfig{
		LogLevel:   "error",
		Cron:       "0 0 * * *",
		Retries:    retries,
		RetryDelay: time.Minute,
		Run:        &RunConfig{LogLevel: "error"},
		Notifier:   n,
	})
	if err != nil {
		t.Fatal(err)
	}
	var sleeps []time.Duration
	s.run = run
	s.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return s, n, &sleeps
}

func TestLogicalDateForTick(t *testing.T) {
	cases := map[string]time.Time{
		"2024-05-31": time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		"2024-02-29": time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC),
		"2023-12-31": time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
	}
	for expected, tick := range cases {
		if got := LogicalDateForTick(tick); got != expected {
			t.Fatalf("tick %v: expected %v; got %v", tick, expected, got)
		}
	}
}

func TestSchedulerRunOnceSucceedsAfterRetry(t *testing.T) {
	calls := 0
	var dates []string
	s, n, sleeps := newTestScheduler(t, 2, func(ctx context.Context, cfg *RunConfig) error {
		calls++
		dates = append(dates, cfg.Pipeline.LogicalDate)
		if cfg.Step != "all" {
			t.Errorf("expected step all; got %v", cfg.Step)
		}
		if calls == 1 {
			return errors.New("database restarting")
		}
		return nil
	})
	if err := s.RunOnce(context.Background(), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if calls != 2 || dates[0] != "2024-06-01" || dates[1] != "2024-06-01" {
		t.Fatalf("unexpected runs: %v", dates)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != time.Minute {
		t.Fatalf("unexpected retry delays: %v", *sleeps)
	}
	if len(n.dates) != 0 {
		t.Fatal("expected no notification after a successful retry")
	}
}

func TestSchedulerRunOnceNotifiesAfterRetries(t *testing.T) {
	calls := 0
	errBoom := errors.New("boom")
	s, n, _ := newTestScheduler(t, 1, func(ctx context.Context, cfg *RunConfig) error {
		calls++
		return errBoom
	})
	err := s.RunOnce(context.Background(), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected %v; got %v", errBoom, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts; got %v", calls)
	}
	if len(n.dates) != 1 || n.dates[0] != "2024-06-01" || !errors.Is(n.errs[0], errBoom) {
		t.Fatalf("unexpected notifications: %v %v", n.dates, n.errs)
	}
}

func TestSchedulerRunOnceStopsWhenCancelled(t *testing.T) {
	calls := 0
	s, n, _ := newTestScheduler(t, 3, func(ctx context.Context, cfg *RunConfig) error {
		calls++
		return errors.New("boom")
	})
	s.sleep = sleepContext
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.RunOnce(ctx, time.Now())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected %v; got %v", context.Canceled, err)
	}
	if calls != 1 || len(n.dates) != 1 {
		t.Fatalf("expected one attempt and one notification; got %v and %v", calls, len(n.dates))
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	log := logger.NewLogger("batchetl", "error", false)
	run := &RunConfig{}
	for name, cfg := range map[string]SchedulerConfig{
		"bad cron":    {LogLevel: "info", Cron: "every day", Run: run},
		"no cron":     {LogLevel: "info", Run: run},
		"no run":      {LogLevel: "info", Cron: "0 0 * * *"},
		"neg retries": {LogLevel: "info", Cron: "0 0 * * *", Retries: -1, Run: run},
	} {
		if _, err := NewScheduler(log, cfg); err == nil {
			t.Fatalf("%v: expected an error", name)
		}
	}
}

package scheduling

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(newTestLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSchedulerActionFires(t *testing.T) {
	var count atomic.Int32

	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionHealthSweep, func(ctx context.Context) error {
		count.Add(1)
		return nil
	})
	if err := s.AddTask(ScheduledTask{
		Name: "sweep", Schedule: "50ms", Action: ActionHealthSweep,
	}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if c := count.Load(); c < 1 {
		t.Errorf("action fired %d times, expected at least 1", c)
	}
}

func TestSchedulerUnknownAction(t *testing.T) {
	s := NewScheduler(newTestLogger())

	err := s.AddTask(ScheduledTask{
		Name: "unknown", Schedule: "100ms", Action: "does_not_exist",
	})
	if err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	s := NewScheduler(newTestLogger())
	s.RegisterAction(ActionContextCleanup, func(ctx context.Context) error { return nil })

	for _, schedule := range []string{"", "not-a-schedule", "-5s"} {
		err := s.AddTask(ScheduledTask{Name: "bad", Schedule: schedule, Action: ActionContextCleanup})
		if err == nil {
			t.Errorf("expected error for schedule %q", schedule)
		}
	}
}

func TestOneShotFiresOnce(t *testing.T) {
	var count atomic.Int32

	s := NewScheduler(newTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	if err := s.AddOneShot("recover:a", 30*time.Millisecond, func(ctx context.Context) error {
		count.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("AddOneShot: %v", err)
	}
	if !s.Pending("recover:a") {
		t.Error("one-shot should be pending before firing")
	}

	time.Sleep(250 * time.Millisecond)

	if c := count.Load(); c != 1 {
		t.Errorf("one-shot fired %d times, want 1", c)
	}
	if s.Pending("recover:a") {
		t.Error("one-shot should not be pending after firing")
	}
}

func TestOneShotDuplicateID(t *testing.T) {
	s := NewScheduler(newTestLogger())
	fn := func(ctx context.Context) error { return nil }

	if err := s.AddOneShot("recover:a", time.Hour, fn); err != nil {
		t.Fatalf("AddOneShot: %v", err)
	}
	if err := s.AddOneShot("recover:a", time.Hour, fn); err == nil {
		t.Error("expected error for duplicate one-shot id")
	}
}

func TestParseScheduleCronAndDuration(t *testing.T) {
	if _, err := ParseSchedule("*/5 * * * *"); err != nil {
		t.Errorf("cron expression: %v", err)
	}
	if _, err := ParseSchedule("30s"); err != nil {
		t.Errorf("duration: %v", err)
	}
}

func TestConstantDelayNext(t *testing.T) {
	d := NewConstantDelay(500 * time.Millisecond)
	now := time.Now()
	if got := d.Next(now); got.Sub(now) != 500*time.Millisecond {
		t.Errorf("Next = %v, want now+500ms", got)
	}
}

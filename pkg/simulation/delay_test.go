package simulation

import (
	"context"
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDelayQueue_RunsInFireTimeOrder(t *testing.T) {
	q := NewDelayQueue()
	var order []string
	record := func(id string) Task {
		return func(context.Context, time.Time) error {
			order = append(order, id)
			return nil
		}
	}

	mustSchedule(t, q, "late", t0.Add(3*time.Hour), record("late"))
	mustSchedule(t, q, "first", t0.Add(time.Hour), record("first"))
	mustSchedule(t, q, "tie-a", t0.Add(2*time.Hour), record("tie-a"))
	mustSchedule(t, q, "tie-b", t0.Add(2*time.Hour), record("tie-b"))

	if next, ok := q.Next(); !ok || !next.Equal(t0.Add(time.Hour)) {
		t.Errorf("Next = %v, %v", next, ok)
	}

	ran, err := q.RunDue(context.Background(), t0.Add(2*time.Hour))
	if err != nil || ran != 3 {
		t.Fatalf("RunDue ran %d, err %v", ran, err)
	}
	want := []string{"first", "tie-a", "tie-b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if q.Len() != 1 {
		t.Errorf("Expected one pending task, got %d", q.Len())
	}
}

func TestDelayQueue_DuplicateAndCancel(t *testing.T) {
	q := NewDelayQueue()
	noop := func(context.Context, time.Time) error { return nil }

	mustSchedule(t, q, "a", t0, noop)
	if err := q.Schedule("a", t0.Add(time.Minute), noop); err == nil {
		t.Error("Expected error for duplicate id")
	}

	if !q.Cancel("a", "test") {
		t.Error("Expected cancel to succeed")
	}
	if q.Cancel("a", "test") {
		t.Error("Expected second cancel to report false")
	}
	if _, ok := q.Next(); ok {
		t.Error("Expected empty queue")
	}

	// the id is free again once the task has left the queue
	mustSchedule(t, q, "a", t0, noop)
}

func TestDelayQueue_TaskSchedulesDueTask(t *testing.T) {
	q := NewDelayQueue()
	chained := false
	mustSchedule(t, q, "parent", t0, func(_ context.Context, now time.Time) error {
		return q.Schedule("child", now, func(context.Context, time.Time) error {
			chained = true
			return nil
		})
	})

	ran, err := q.RunDue(context.Background(), t0)
	if err != nil || ran != 2 || !chained {
		t.Errorf("RunDue ran %d, err %v, chained %v", ran, err, chained)
	}
}

func TestDelayQueue_ErrorStopsDrain(t *testing.T) {
	q := NewDelayQueue()
	boom := errors.New("boom")
	mustSchedule(t, q, "bad", t0, func(context.Context, time.Time) error { return boom })
	mustSchedule(t, q, "good", t0.Add(time.Second), func(context.Context, time.Time) error { return nil })

	ran, err := q.RunDue(context.Background(), t0.Add(time.Minute))
	if !errors.Is(err, boom) || ran != 1 {
		t.Fatalf("RunDue ran %d, err %v", ran, err)
	}
	if q.Len() != 1 {
		t.Errorf("Expected remaining task queued, got %d", q.Len())
	}
}

func TestDelayQueue_ContextCancelled(t *testing.T) {
	q := NewDelayQueue()
	mustSchedule(t, q, "a", t0, func(context.Context, time.Time) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.RunDue(ctx, t0); !errors.Is(err, context.Canceled) {
		t.Errorf("RunDue = %v, want context.Canceled", err)
	}
	if q.Len() != 1 {
		t.Error("Cancelled drain must not drop tasks")
	}
}

func mustSchedule(t *testing.T, q *DelayQueue, id string, at time.Time, task Task) {
	t.Helper()
	if err := q.Schedule(id, at, task); err != nil {
		t.Fatalf("Schedule(%s): %v", id, err)
	}
}

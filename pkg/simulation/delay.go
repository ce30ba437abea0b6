package simulation

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task runs when its fire time passes.
type Task func(ctx context.Context, now time.Time) error

type delayed struct {
	id    string
	at    time.Time
	order uint64
	task  Task
	index int
}

type delayHeap []*delayed

func (h delayHeap) Len() int { return len(h) }

func (h delayHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].order < h[j].order
	}
	return h[i].at.Before(h[j].at)
}

func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayHeap) Push(x any) {
	d := x.(*delayed)
	d.index = len(*h)
	*h = append(*h, d)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*h = old[:n-1]
	return d
}

// DelayQueue is a min-heap of tasks keyed by simulated fire time. The
// scheduler drains it at the start of every tick.
type DelayQueue struct {
	mu    sync.Mutex
	items delayHeap
	byID  map[string]*delayed
	order uint64
}

// NewDelayQueue creates an empty queue.
func NewDelayQueue() *DelayQueue {
	return &DelayQueue{byID: make(map[string]*delayed)}
}

// Schedule queues task under id. Ids are unique while pending.
func (q *DelayQueue) Schedule(id string, at time.Time, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byID[id]; ok {
		return fmt.Errorf("task %s already scheduled", id)
	}
	q.order++
	d := &delayed{id: id, at: at, order: q.order, task: task}
	heap.Push(&q.items, d)
	q.byID[id] = d
	return nil
}

// Cancel removes a pending task. It is an operator tool for invalidating a
// grading by hand; no pipeline path calls it, so every use is logged.
func (q *DelayQueue) Cancel(id, reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	d, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.items, d.index)
	delete(q.byID, id)

	logrus.WithFields(logrus.Fields{
		"task_id": id,
		"fire_at": d.at,
		"reason":  reason,
	}).Warn("delayed task cancelled")
	return true
}

// Len returns the number of pending tasks.
func (q *DelayQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Next returns the earliest fire time.
func (q *DelayQueue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].at, true
}

func (q *DelayQueue) popDue(now time.Time) *delayed {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.items[0].at.After(now) {
		return nil
	}
	d := heap.Pop(&q.items).(*delayed)
	delete(q.byID, d.id)
	return d
}

// RunDue runs every task due by now in fire-time order and returns the
// number run. Tasks may schedule further tasks. The first error stops the
// drain; remaining tasks stay queued.
func (q *DelayQueue) RunDue(ctx context.Context, now time.Time) (int, error) {
	ran := 0
	for {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		d := q.popDue(now)
		if d == nil {
			return ran, nil
		}
		ran++
		if err := d.task(ctx, now); err != nil {
			return ran, fmt.Errorf("delayed task %s: %w", d.id, err)
		}
	}
}

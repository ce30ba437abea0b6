package observer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Kind names a stage transition.
type Kind string

const (
	KindBet                   Kind = "bet"
	KindFlagged               Kind = "flagged"
	KindFlagDismissed         Kind = "flag_dismissed"
	KindRiskAssessed          Kind = "risk_assessed"
	KindInterventionProposed  Kind = "intervention_proposed"
	KindInterventionBlocked   Kind = "intervention_blocked"
	KindInterventionApproved  Kind = "intervention_approved"
	KindInterventionDelivered Kind = "intervention_delivered"
	KindDeliveryFailed        Kind = "delivery_failed"
	KindChurn                 Kind = "churn"
	KindOutcomeLabeled        Kind = "outcome_labeled"
	KindSimulationStats       Kind = "simulation_stats"
)

// Event is one notification. Seq is strictly increasing across the stream.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    Kind      `json:"kind"`
	ActorID int       `json:"actorId"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

// Publisher is what the engine writes to.
type Publisher interface {
	Publish(kind Kind, actorID int, at time.Time, payload any)
}

// Stream fans events out to subscribers. Publish never blocks: a full
// subscriber buffer loses its oldest event.
type Stream struct {
	mu     sync.Mutex
	seq    uint64
	buffer int
	nextID int
	subs   map[int]*Subscription
	onDrop func()
}

// NewStream creates a stream whose subscribers buffer up to buffer events.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 1
	}
	return &Stream{
		buffer: buffer,
		subs:   make(map[int]*Subscription),
	}
}

// OnDrop registers a hook called for every dropped event.
func (s *Stream) OnDrop(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDrop = fn
}

// Publish implements Publisher.
func (s *Stream) Publish(kind Kind, actorID int, at time.Time, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ev := Event{Seq: s.seq, Kind: kind, ActorID: actorID, Time: at, Payload: payload}

	for _, sub := range s.subs {
		if sub.offer(ev) {
			continue
		}
		sub.dropped.Add(1)
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

// Subscribe registers a new consumer.
func (s *Stream) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{
		id:     s.nextID,
		ch:     make(chan Event, s.buffer),
		stream: s,
	}
	s.subs[sub.id] = sub
	s.nextID++
	return sub
}

func (s *Stream) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(sub.ch)
	}
}

// Subscription is one consumer's view of the stream.
type Subscription struct {
	id      int
	ch      chan Event
	stream  *Stream
	dropped atomic.Uint64
	once    sync.Once
}

// offer enqueues ev, evicting the oldest queued event when full. It reports
// false when something was evicted. Only called with the stream lock held.
func (sub *Subscription) offer(ev Event) bool {
	select {
	case sub.ch <- ev:
		return true
	default:
	}

	select {
	case <-sub.ch:
	default:
	}

	select {
	case sub.ch <- ev:
	default:
	}
	return false
}

// Events is closed when the subscription is closed.
func (sub *Subscription) Events() <-chan Event {
	return sub.ch
}

// Dropped counts events this subscriber lost to backpressure.
func (sub *Subscription) Dropped() uint64 {
	return sub.dropped.Load()
}

// Close detaches the subscription. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.stream.unsubscribe(sub.id)
	})
}

// LogSink drains sub into logger until ctx ends or the subscription closes.
func LogSink(ctx context.Context, sub *Subscription, logger logrus.FieldLogger) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			entry := logger.WithFields(logrus.Fields{
				"seq":      ev.Seq,
				"kind":     ev.Kind,
				"actor_id": ev.ActorID,
				"sim_time": ev.Time,
			})
			if ev.Kind == KindSimulationStats || ev.Kind == KindDeliveryFailed {
				entry.WithField("payload", ev.Payload).Info("observer event")
				continue
			}
			entry.Debug("observer event")
		}
	}
}

// Nop discards everything.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(Kind, int, time.Time, any) {}

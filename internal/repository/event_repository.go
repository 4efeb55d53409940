package repository

import (
	"sync"
	"time"

	"unlock-relay/internal/domain"

	"github.com/google/uuid"
)

const (
	// MaxEvents is the length above which the oldest TrimBatch events are dropped.
	MaxEvents = 200
	TrimBatch = 50
	// MaxTail bounds how many events a single Tail call returns.
	MaxTail = 100
)

// EventListener is called for each appended event while the append lock is
// held, so listeners see events in append order. It must not block.
type EventListener func(domain.Event)

type EventRepository interface {
	Append(event domain.Event) domain.Event
	Tail(n int) []domain.Event
	Subscribe(listener EventListener)
}

type eventRepository struct {
	mu        sync.Mutex
	events    []domain.Event
	listeners []EventListener
}

func NewEventRepository() EventRepository {
	return &eventRepository{
		events: make([]domain.Event, 0, MaxEvents+1),
	}
}

// Append stores event, filling in ID and Timestamp when empty, and returns
// the stored copy.
func (r *eventRepository) Append(event domain.Event) domain.Event {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if len(r.events) > MaxEvents {
		kept := make([]domain.Event, len(r.events)-TrimBatch, MaxEvents+1)
		copy(kept, r.events[TrimBatch:])
		r.events = kept
	}

	for _, l := range r.listeners {
		l(event)
	}

	return event
}

func (r *eventRepository) Tail(n int) []domain.Event {
	if n <= 0 || n > MaxTail {
		n = MaxTail
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n > len(r.events) {
		n = len(r.events)
	}
	out := make([]domain.Event, n)
	copy(out, r.events[len(r.events)-n:])
	return out
}

func (r *eventRepository) Subscribe(listener EventListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

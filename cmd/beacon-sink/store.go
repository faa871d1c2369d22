package main

import (
	"sync"
	"time"

	"github.com/quietmetrics/beacon/pkg/event"
)

// StoredEvent is one ingested event as kept and served by the sink.
type StoredEvent struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Properties event.Properties `json:"properties,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	ReceivedAt time.Time        `json:"received_at"`
}

// EventStore is a bounded in-memory buffer of the most recent events. The
// sink is a development tool; nothing is persisted.
type EventStore struct {
	mu       sync.Mutex
	capacity int
	events   []StoredEvent
}

// NewEventStore creates a store that retains at most capacity events.
func NewEventStore(capacity int) *EventStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &EventStore{capacity: capacity}
}

// Add appends an event, evicting the oldest once at capacity.
func (s *EventStore) Add(e StoredEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
}

// Recent returns up to limit events, newest first.
func (s *EventStore) Recent(limit int) []StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]StoredEvent, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.events[len(s.events)-1-i]
	}
	return out
}

// Get returns the retained event with the given ID.
func (s *EventStore) Get(id string) (StoredEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ID == id {
			return s.events[i], true
		}
	}
	return StoredEvent{}, false
}

// Len returns the number of retained events.
func (s *EventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

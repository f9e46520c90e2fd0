package event

import (
	"sync"
	"time"
)

type (
	Queueable interface {
		Process()
		IsProcessed() bool
		Drop()
		IsDropped() bool
		Expired() bool
		Type() string
	}

	Base struct {
		mu        sync.Mutex
		processed bool
		dropped   bool
		expireAt  time.Time
		eventType string
	}

	// Bus is a bounded in-memory queue of events.
	Bus struct {
		q chan Queueable
	}
)

func CreateBase(eventType string, expiresAt time.Time) *Base {
	return &Base{
		expireAt:  expiresAt,
		eventType: eventType,
	}
}

func (b *Base) Process() {
	b.mu.Lock()
	b.processed = true
	b.mu.Unlock()
}

func (b *Base) IsProcessed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processed
}

func (b *Base) Drop() {
	b.mu.Lock()
	b.dropped = true
	b.mu.Unlock()
}

func (b *Base) IsDropped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Base) Expired() bool {
	return time.Until(b.expireAt) < 0
}

func (b *Base) Type() string {
	return b.eventType
}

func NewBus(size int) *Bus {
	if size <= 0 {
		size = 1024
	}
	return &Bus{q: make(chan Queueable, size)}
}

// Enqueue adds event without blocking. It returns false when the queue is full.
func (b *Bus) Enqueue(event Queueable) bool {
	select {
	case b.q <- event:
		return true
	default:
		return false
	}
}

// Publish is Enqueue for callers that only fire and forget.
func (b *Bus) Publish(event Queueable) {
	if !b.Enqueue(event) {
		l.WithField("type", event.Type()).Warn("event queue full, dropping event")
	}
}

func (b *Bus) Len() int {
	return len(b.q)
}

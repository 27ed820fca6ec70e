package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/models"
)

const defaultFeedBuffer = 8

// EventFeed fans store changes out to live views.
type EventFeed struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	logger *zap.Logger
}

// NewEventFeed constructs a feed whose subscribers buffer up to buffer notices.
func NewEventFeed(buffer int, logger *zap.Logger) *EventFeed {
	if buffer <= 0 {
		buffer = defaultFeedBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventFeed{subs: make(map[uint64]*Subscription), buffer: buffer, logger: logger}
}

// Subscription is a single listener. Close must be called when the listener goes away.
type Subscription struct {
	C <-chan models.EventChange

	ch   chan models.EventChange
	id   uint64
	feed *EventFeed
	once sync.Once
}

// Subscribe registers a listener.
func (f *EventFeed) Subscribe() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ch := make(chan models.EventChange, f.buffer)
	sub := &Subscription{C: ch, ch: ch, id: f.nextID, feed: f}
	f.subs[sub.id] = sub
	return sub
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		close(s.ch)
		s.feed.mu.Unlock()
	})
}

// Publish delivers a change without blocking. A full subscriber loses its oldest notice.
func (f *EventFeed) Publish(change models.EventChange) {
	if f == nil {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		select {
		case sub.ch <- change:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- change:
		default:
			f.logger.Debug("dropping event change", zap.Uint64("subscription", sub.id))
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (f *EventFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

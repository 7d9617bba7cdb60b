package events

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives events synchronously on the publishing goroutine.
type Handler func(Event)

type listener struct {
	id      uint64
	handler Handler
}

// EventBus is a pub-sub event bus. Consumers either subscribe with a
// buffered channel (non-blocking, lossy when full) or register a Handler
// that is called synchronously for every event. Publishing never fails: a
// panicking handler is recovered and logged.
type EventBus struct {
	mu        sync.RWMutex
	subs      map[string][]chan Event // topic -> subscriber channels
	allSubs   []chan Event            // channels subscribed to all topics
	listeners map[string][]listener   // topic -> synchronous handlers
	nextID    uint64
	closed    bool
	logger    *zap.Logger
}

// Option configures an EventBus.
type Option func(*EventBus)

// WithLogger sets the logger used to report handler panics.
func WithLogger(logger *zap.Logger) Option {
	return func(b *EventBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewEventBus creates a new event bus.
func NewEventBus(opts ...Option) *EventBus {
	b := &EventBus{
		subs:      make(map[string][]chan Event),
		allSubs:   make([]chan Event, 0),
		listeners: make(map[string][]listener),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe creates a subscription to a specific topic.
// bufSize determines the channel buffer size (defaults to 256 if <= 0).
func (b *EventBus) Subscribe(topic string, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs[topic] = append(b.subs[topic], ch)

	return ch
}

// SubscribeAll creates a subscription to ALL topics.
// bufSize determines the channel buffer size (defaults to 256 if <= 0).
func (b *EventBus) SubscribeAll(bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.allSubs = append(b.allSubs, ch)

	return ch
}

// On registers a synchronous handler for topic and returns a function that
// removes it. Handlers must not block for long; they run on the task's
// goroutine.
func (b *EventBus) On(topic string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[topic] = append(b.listeners[topic], listener{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			ls := b.listeners[topic]
			for i, l := range ls {
				if l.id == id {
					b.listeners[topic] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish sends an event to all subscribers of the given topic.
// Channel delivery is non-blocking: a full channel drops the event for that
// subscriber. Handlers are invoked afterwards, outside the lock.
func (b *EventBus) Publish(topic string, event Event) {
	b.mu.RLock()

	if b.closed {
		b.mu.RUnlock()
		return
	}

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
		}
	}

	for _, ch := range b.allSubs {
		select {
		case ch <- event:
		default:
		}
	}

	handlers := make([]Handler, 0, len(b.listeners[topic]))
	for _, l := range b.listeners[topic] {
		handlers = append(handlers, l.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(topic, event, h)
	}
}

func (b *EventBus) dispatch(topic string, event Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event handler panicked",
				zap.String("topic", topic),
				zap.String("event", event.EventType()),
				zap.String("task_id", event.TaskID()),
				zap.Any("panic", r),
			)
		}
	}()
	h(event)
}

// Close closes the event bus and all subscriber channels. Handlers are
// dropped. Safe to call multiple times.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range b.allSubs {
		close(ch)
	}

	b.listeners = make(map[string][]listener)
}

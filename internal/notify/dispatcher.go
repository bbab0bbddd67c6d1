package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const deliveryTimeout = 5 * time.Second

// Dispatcher queues events and delivers them from a background worker.
type Dispatcher struct {
	notifier Notifier
	events   chan Event
	logger   zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewDispatcher starts a worker delivering to notifier. Events beyond
// bufferSize pending ones are dropped.
func NewDispatcher(notifier Notifier, bufferSize int, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		events:   make(chan Event, bufferSize),
		logger:   logger.With().Str("component", "notify").Logger(),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Publish enqueues an event without blocking.
func (d *Dispatcher) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn().Str("event", string(event.Type)).Msg("dispatcher closed, event dropped")
		return
	}

	select {
	case d.events <- event:
	default:
		d.logger.Warn().Str("event", string(event.Type)).Msg("notification queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.events)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for event := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := d.notifier.Notify(ctx, event); err != nil {
			d.logger.Error().
				Err(err).
				Str("event", string(event.Type)).
				Str("code", event.Code).
				Msg("failed to deliver notification")
		}
		cancel()
	}
}

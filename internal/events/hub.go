package events

import (
	"context"
	"log/slog"
	"sync"

	"mediabutler/internal/logging"
)

// Hub fans events out to every registered sink from a single background
// goroutine. Publish never blocks the caller beyond the channel buffer;
// events from one publisher are delivered in publish order.
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	sinks []Sink

	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewHub constructs a hub with the given buffer capacity.
func NewHub(logger *slog.Logger, capacity int) *Hub {
	if capacity <= 0 {
		capacity = 64
	}
	return &Hub{
		logger: logging.NewComponentLogger(logger, "events"),
		ch:     make(chan Event, capacity),
		done:   make(chan struct{}),
	}
}

// Register adds a sink. Safe to call before or after Start.
func (h *Hub) Register(sink Sink) {
	if sink == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, sink)
}

// Start launches the dispatch loop.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				h.drain()
				return
			case event, ok := <-h.ch:
				if !ok {
					return
				}
				h.dispatch(ctx, event)
			}
		}
	}()
}

// Publish queues an event for delivery. When the buffer is full the event is
// dropped with a warning; the push channel is advisory, the database is the
// source of truth.
func (h *Hub) Publish(_ context.Context, event Event) error {
	select {
	case h.ch <- event:
	default:
		h.logger.Warn("event buffer full, dropping event",
			logging.String(logging.FieldEventType, string(event.Kind)),
		)
	}
	return nil
}

// Close stops accepting events and waits for the dispatch loop to finish.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.ch) })
	<-h.done
}

func (h *Hub) drain() {
	for {
		select {
		case event, ok := <-h.ch:
			if !ok {
				return
			}
			h.dispatch(context.Background(), event)
		default:
			return
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, event Event) {
	h.mu.RLock()
	sinks := make([]Sink, len(h.sinks))
	copy(sinks, h.sinks)
	h.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Publish(ctx, event); err != nil {
			h.logger.Warn("event sink publish failed",
				logging.String(logging.FieldEventType, string(event.Kind)),
				logging.Error(err),
			)
		}
	}
}

var _ Sink = (*Hub)(nil)

package events

import (
	"context"
	"time"
)

// Kind identifies an event type on the outbound contract.
type Kind string

const (
	ScanStarted              Kind = "scan.started"
	ScanFound                Kind = "scan.found"
	ScanCompleted            Kind = "scan.completed"
	FileDiscovered           Kind = "file.discovered"
	ClassificationCompleted  Kind = "classification.completed"
	BatchStarted             Kind = "batch.started"
	BatchProgress            Kind = "batch.progress"
	BatchCompleted           Kind = "batch.completed"
	BatchCancelled           Kind = "batch.cancelled"
	ErrorMoveFailed          Kind = "error.move_failed"
	ErrorClassificationFault Kind = "error.classification_failed"
)

// Event is one outbound notification. Payload keys follow the wire contract
// for the event kind; At is stamped by the publisher.
type Event struct {
	Kind    Kind
	Payload map[string]any
	At      time.Time
}

// New builds an event stamped with the current UTC time.
func New(kind Kind, payload map[string]any) Event {
	return Event{Kind: kind, Payload: payload, At: time.Now().UTC()}
}

// Sink receives published events. Implementations must be safe for
// concurrent use and tolerate duplicate delivery.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }

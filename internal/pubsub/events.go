// Package pubsub fans typed events out to in-process subscribers.
package pubsub

import "context"

// EventType names one kind of event, e.g. "input".
type EventType string

// Event is a payload tagged with its kind.
type Event[T any] struct {
	Type    EventType
	Payload T
}

// Subscriber hands out event channels that live as long as ctx.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher delivers payloads to every current subscriber.
type Publisher[T any] interface {
	Publish(t EventType, payload T)
}

var (
	_ Subscriber[struct{}] = (*Broker[struct{}])(nil)
	_ Publisher[struct{}]  = (*Broker[struct{}])(nil)
)

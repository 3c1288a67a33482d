// Package eventbus is the contract for publishing committed state changes.
package eventbus

import "context"

// Event is a fact that already happened. Type names are "Aggregate.Fact".
type Event interface {
	Type() string
}

// Keyed events are routed by key, so events of one key keep their order on
// partitioned transports.
type Keyed interface {
	Key() string
}

type HandlerFunc func(ctx context.Context, e Event) error

// Factories rebuilds typed events from their type name when decoding.
type Factories map[string]func() Event

// Bus publishes events and dispatches them to registered handlers.
type Bus interface {
	Emit(ctx context.Context, e Event) error
	Register(eventType string, handler HandlerFunc)
}

package core

import (
	"context"
	"time"
)

// SchemaEventKind is the kind of change a schema event announces.
type SchemaEventKind string

const (
	// EventCreated is published after a table was created.
	EventCreated SchemaEventKind = "created"

	// EventDropped is published after a table was dropped.
	EventDropped SchemaEventKind = "dropped"

	// EventEvicted is published after a stale cache entry was evicted.
	EventEvicted SchemaEventKind = "evicted"
)

// SchemaEvent tells other registries that their view of a table may be stale.
type SchemaEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Table is the affected table.
	Table string `json:"table"`

	// Kind is the change that happened.
	Kind SchemaEventKind `json:"kind"`

	// Source identifies the registry instance that published the event.
	Source string `json:"source"`

	// Timestamp is when the change was applied.
	Timestamp time.Time `json:"timestamp"`
}

// EventQueue distributes schema events between registry instances.
type EventQueue interface {
	// Publish appends an event to the queue.
	Publish(ctx context.Context, event *SchemaEvent) error

	// Poll returns up to max pending events without blocking for new ones.
	// Returns an empty slice if no events are available.
	Poll(ctx context.Context, max int) ([]*SchemaEvent, error)

	// Size returns an approximate number of pending events.
	Size() int

	// Close closes the queue and releases resources.
	Close() error
}

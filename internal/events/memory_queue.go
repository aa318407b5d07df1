package events

import (
	"context"
	"sync"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

const defaultBufferSize = 10000

// MemoryBroker is an in-process event log. Every queue opened on it reads the
// log independently, so one published event reaches every queue.
type MemoryBroker struct {
	mu       sync.RWMutex
	events   []*core.SchemaEvent
	base     int64 // absolute offset of events[0]
	capacity int
}

// NewMemoryBroker creates a broker that retains at most capacity events.
func NewMemoryBroker(capacity int) *MemoryBroker {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &MemoryBroker{capacity: capacity}
}

var (
	sharedBrokers   = make(map[string]*MemoryBroker)
	sharedBrokersMu sync.Mutex
)

// SharedBroker returns the process-wide broker for name, creating it on first use.
func SharedBroker(name string, capacity int) *MemoryBroker {
	sharedBrokersMu.Lock()
	defer sharedBrokersMu.Unlock()

	if b, ok := sharedBrokers[name]; ok {
		return b
	}
	b := NewMemoryBroker(capacity)
	sharedBrokers[name] = b
	return b
}

func (b *MemoryBroker) end() int64 {
	return b.base + int64(len(b.events))
}

func (b *MemoryBroker) append(event *core.SchemaEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
	if over := len(b.events) - b.capacity; over > 0 {
		b.events = append([]*core.SchemaEvent(nil), b.events[over:]...)
		b.base += int64(over)
	}
}

// read returns up to max events at or after offset and the next offset.
// Readers that fell behind the retained window skip to the oldest event.
func (b *MemoryBroker) read(offset int64, max int) ([]*core.SchemaEvent, int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if offset < b.base {
		offset = b.base
	}
	start := int(offset - b.base)
	stop := start + max
	if stop > len(b.events) {
		stop = len(b.events)
	}
	out := make([]*core.SchemaEvent, 0, stop-start)
	for _, e := range b.events[start:stop] {
		c := *e
		out = append(out, &c)
	}
	return out, offset + int64(len(out))
}

// NewQueue opens a reader positioned after the events already in the log.
func (b *MemoryBroker) NewQueue() *MemoryQueue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &MemoryQueue{broker: b, offset: b.end()}
}

// MemoryQueue implements core.EventQueue on a MemoryBroker.
type MemoryQueue struct {
	broker *MemoryBroker

	mu     sync.Mutex
	offset int64
	closed bool
}

// NewMemoryQueue creates a queue on a private broker.
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	return NewMemoryBroker(bufferSize).NewQueue()
}

// Publish appends an event to the broker log.
func (q *MemoryQueue) Publish(ctx context.Context, event *core.SchemaEvent) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepare(event); err != nil {
		return err
	}

	c := *event
	q.broker.append(&c)
	return nil
}

// Poll returns the events this queue has not yet seen, oldest first.
func (q *MemoryQueue) Poll(ctx context.Context, max int) ([]*core.SchemaEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events, next := q.broker.read(q.offset, pollSize(max))
	q.offset = next
	return events, nil
}

// Size returns the number of events this queue has not yet polled.
func (q *MemoryQueue) Size() int {
	q.mu.Lock()
	offset := q.offset
	q.mu.Unlock()

	q.broker.mu.RLock()
	defer q.broker.mu.RUnlock()
	if offset < q.broker.base {
		offset = q.broker.base
	}
	return int(q.broker.end() - offset)
}

// Close closes the reader. The broker and other queues are unaffected.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Package queue buffers submitted calls until a worker picks them up.
package queue

import (
	"context"
	"sync"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Queue is a bounded FIFO of calls awaiting scoring.
type Queue interface {
	// Enqueue adds c without blocking. It fails with ErrFull when the queue is at
	// capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, c model.Call) error

	// Dequeue returns the channel workers receive from. It is closed after Close
	// once the remaining calls are drained.
	Dequeue() <-chan model.Call

	Len() int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	calls    chan model.Call
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue with the configured capacity.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.calls = make(chan model.Call, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, c model.Call) error { //nolint:gocritic // hugeParam: Call is passed by value into the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.calls <- c:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

func (q *InMemoryQueue) Dequeue() <-chan model.Call { return q.calls }

// Len reports the number of waiting calls.
func (q *InMemoryQueue) Len() int {
	q.observe()
	return len(q.calls)
}

// Cap reports the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops accepting calls. Calls already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.calls)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Taken records that a worker received a call.
func (q *InMemoryQueue) Taken() {
	metrics.RecordQueueDequeue()
	q.observe()
}

func (q *InMemoryQueue) observe() {
	size := len(q.calls)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

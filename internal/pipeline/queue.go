// Package pipeline implements the three-stage Fetch → Parse → Compute
// pipeline and the bounded queues connecting its stages.
package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridguard/leop-server/internal/adapter/observability"
	"github.com/gridguard/leop-server/internal/domain"
)

// Queue is a bounded MPMC FIFO with blocking push/pop and a shutdown
// broadcast. After Close, pushes fail immediately and pops drain the
// residue before failing.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items  []T
	head   int
	size   int
	closed bool

	depth prometheus.Gauge // may be nil
}

// NewQueue returns a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	q := &Queue[T]{items: make([]T, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// NewNamedQueue returns a queue that reports its depth to the pipeline
// queue-depth gauge under name.
func NewNamedQueue[T any](name string, capacity int) *Queue[T] {
	q := NewQueue[T](capacity)
	q.depth = observability.QueueDepth.WithLabelValues(name)
	return q
}

// Push blocks until capacity is available, then inserts item. Returns
// domain.ErrQueueClosed if the queue is closed before the insert happens.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == len(q.items) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return domain.ErrQueueClosed
	}
	q.insert(item)
	q.notEmpty.Signal()
	return nil
}

// TryPush inserts item without blocking. Returns domain.ErrQueueFull when
// at capacity and domain.ErrQueueClosed after Close.
func (q *Queue[T]) TryPush(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}
	if q.size == len(q.items) {
		return domain.ErrQueueFull
	}
	q.insert(item)
	q.notEmpty.Signal()
	return nil
}

// Pop blocks until an item is available and returns it. After Close it
// keeps returning resident items until the queue drains, then returns
// domain.ErrQueueClosed.
func (q *Queue[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.size == 0 {
		var zero T
		return zero, domain.ErrQueueClosed
	}

	item := q.items[q.head]
	var zero T
	q.items[q.head] = zero // release reference
	q.head = (q.head + 1) % len(q.items)
	q.size--
	q.reportDepth()
	q.notFull.Signal()
	return item, nil
}

// Close marks the queue shut down and wakes every blocked producer and
// consumer. Idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of resident items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue[T]) insert(item T) {
	q.items[(q.head+q.size)%len(q.items)] = item
	q.size++
	q.reportDepth()
}

func (q *Queue[T]) reportDepth() {
	if q.depth != nil {
		q.depth.Set(float64(q.size))
	}
}

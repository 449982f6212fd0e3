// ABOUTME: Fixed-capacity blocking queue with flush support
// ABOUTME: Hands sample blocks between a producer and a real-time consumer
package queue

import "sync"

// BlockingQueue is a bounded FIFO shared by producer and consumer goroutines.
//
// Put and Take block until they can make progress. BeginFlush discards every
// queued item and releases all blocked callers, which then report failure;
// the queue keeps rejecting Put, Offer and Take until EndFlush. Unlike a
// closed channel the queue can be reopened.
type BlockingQueue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	flushing bool

	// ring storage, count items starting at readPos
	items   []T
	readPos int
	count   int
}

// New creates a queue holding at most capacity items. It panics if capacity
// is less than one.
func New[T any](capacity int) *BlockingQueue[T] {
	if capacity < 1 {
		panic("queue: capacity must be at least 1")
	}
	q := &BlockingQueue[T]{
		items: make([]T, capacity),
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put appends item, waiting while the queue is full. It returns false
// without inserting item if the queue is or becomes flushing.
func (q *BlockingQueue[T]) Put(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == len(q.items) && !q.flushing {
		q.notFull.Wait()
	}
	if q.flushing {
		return false
	}

	q.push(item)
	return true
}

// Offer appends item if there is room. It never waits and returns false if
// the queue is full or flushing.
func (q *BlockingQueue[T]) Offer(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.flushing || q.count == len(q.items) {
		return false
	}

	q.push(item)
	return true
}

// Take removes the oldest item, waiting while the queue is empty. It
// returns false if the queue is or becomes flushing.
func (q *BlockingQueue[T]) Take() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.flushing {
		q.notEmpty.Wait()
	}
	if q.flushing {
		var zero T
		return zero, false
	}

	return q.pop(), true
}

// Poll removes the oldest item if there is one. It never waits.
func (q *BlockingQueue[T]) Poll() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}

	return q.pop(), true
}

// BeginFlush drops every queued item and wakes all blocked Put and Take
// callers. It returns the number of items dropped and whether this call
// started the flush; calling it while already flushing does nothing.
func (q *BlockingQueue[T]) BeginFlush() (dropped int, started bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.flushing {
		return 0, false
	}

	q.flushing = true
	dropped = q.count
	q.clear()

	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
	return dropped, true
}

// EndFlush reopens the queue. It starts out empty.
func (q *BlockingQueue[T]) EndFlush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flushing = false
}

// Len returns the number of queued items
func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity
func (q *BlockingQueue[T]) Cap() int {
	return len(q.items)
}

// Flushing reports whether the queue is between BeginFlush and EndFlush
func (q *BlockingQueue[T]) Flushing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushing
}

// push appends at the write position (must hold q.mu, queue not full)
func (q *BlockingQueue[T]) push(item T) {
	writePos := (q.readPos + q.count) % len(q.items)
	q.items[writePos] = item
	q.count++
	q.notEmpty.Signal()
}

// pop removes the item at the read position (must hold q.mu, queue not empty)
func (q *BlockingQueue[T]) pop() T {
	var zero T
	item := q.items[q.readPos]
	q.items[q.readPos] = zero
	q.readPos = (q.readPos + 1) % len(q.items)
	q.count--
	q.notFull.Signal()
	return item
}

// clear zeroes every slot so dropped items can be collected (must hold q.mu)
func (q *BlockingQueue[T]) clear() {
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.readPos = 0
	q.count = 0
}

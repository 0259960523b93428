package download

import (
	"context"
	"sync"
)

// Entry is a queued point-in-time copy of an item.
type Entry struct {
	URL  string
	Item Item
	Seq  uint64 // history generation the entry was enqueued as
}

// Queue is an unbounded FIFO with a single blocking consumer.
// Push never blocks; Pop waits until an entry is available or ctx is done.
type Queue struct {
	mu         sync.Mutex
	entries    []Entry
	unfinished int           // pushed but not yet acknowledged with Done
	ready      chan struct{} // holds a token while entries is non-empty
	closed     bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends e. It returns false if the queue is closed.
func (q *Queue) Push(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.entries = append(q.entries, e)
	q.unfinished++
	q.signalLocked()
	return true
}

// Done acknowledges one popped entry. Every successful Pop must be matched by
// exactly one Done.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished <= 0 {
		panic("download: Queue.Done called more times than Pop")
	}
	q.unfinished--
}

// Unfinished returns the number of entries pushed but not yet acknowledged.
func (q *Queue) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}

// Pop removes the oldest entry, blocking until one is available.
func (q *Queue) Pop(ctx context.Context) (Entry, error) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			e := q.entries[0]
			q.entries[0] = Entry{}
			q.entries = q.entries[1:]
			q.signalLocked()
			q.mu.Unlock()
			return e, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Entry{}, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops accepting entries and wakes a blocked consumer.
// Entries already queued can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// signalLocked keeps one wake-up token available while there is work.
func (q *Queue) signalLocked() {
	if len(q.entries) == 0 {
		return
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

package console

import "sync"

// Queue is a thread-safe FIFO of raw console lines.
//
// Readers (stdin, a network console) enqueue from their own goroutines;
// the frame loop drains it without blocking in the Input phase.
type Queue struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		lines:  make([]string, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a line to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *Queue) Enqueue(line string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.lines = append(q.lines, line)

	// coalesce signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front line without blocking.
// Returns ("", false) if the queue is empty.
func (q *Queue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return "", false
	}

	line := q.lines[0]
	if len(q.lines) == 1 {
		q.lines = q.lines[:0]
	} else {
		q.lines = q.lines[1:]
	}
	return line, true
}

// Wait returns a channel that signals when lines may be available.
// It is closed by Close.
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Close signals that no more lines will be enqueued. Lines already queued
// can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Package outbox provides the unbounded FIFO of committed lines awaiting
// transmission.
package outbox

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("outbox: closed")

// Queue is an unbounded single-producer, single-consumer FIFO. Push never
// blocks; the consumer receives lines in order from Out.
type Queue struct {
	mu     sync.Mutex
	items  []string
	closed bool

	notify chan struct{}
	out    chan string
	done   chan struct{}
	once   sync.Once
}

// New starts a queue. Close it to stop its pump goroutine.
func New() *Queue {
	q := &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan string),
		done:   make(chan struct{}),
	}
	go q.pump()
	return q
}

// Push appends line to the tail.
func (q *Queue) Push(line string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, line)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default: // already signaled
	}
	return nil
}

// Out delivers queued lines. It is closed after Close.
func (q *Queue) Out() <-chan string {
	return q.out
}

// Len reports how many lines have not been handed to the consumer yet.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the queue. Lines still queued are dropped.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

func (q *Queue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}
		head := q.items[0]
		q.mu.Unlock()

		select {
		case q.out <- head:
			q.mu.Lock()
			q.items[0] = ""
			q.items = q.items[1:]
			q.mu.Unlock()
		case <-q.done:
			return
		}
	}
}

package command

import (
	"sync/atomic"
)

// node is a link in the intrusive MPSC list. The consumer keeps the most
// recently consumed node as its stub.
type node struct {
	next atomic.Pointer[node]
	cmd  Command
}

// Queue is an unbounded multi-producer single-consumer FIFO of commands.
//
// Enqueue may be called from any goroutine and never blocks. Drain and
// DrainAll must only be called from one goroutine at a time (the audio
// goroutine); they never block and never wait for commands that are still
// being linked by a producer, so each drain observes a prefix of the accepted
// sequence.
type Queue struct {
	head    atomic.Pointer[node] // last accepted node, producers swap here
	tail    *node                // consumer stub, owned by the consumer
	pending atomic.Int64
	dropped atomic.Uint64
	closed  atomic.Bool
	limit   int64
}

// Option configures a Queue.
type Option func(*Queue)

// WithLimit bounds the number of pending commands. When the bound is reached
// new commands are dropped and counted. Zero means unbounded.
func WithLimit(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.limit = int64(n)
		}
	}
}

// NewQueue returns an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{}
	for _, opt := range opts {
		opt(q)
	}
	stub := &node{}
	q.head.Store(stub)
	q.tail = stub
	return q
}

// Enqueue accepts cmd. It never blocks and never reports failure: after Close,
// or when a limit is configured and reached, cmd is silently discarded.
func (q *Queue) Enqueue(cmd Command) {
	if q.closed.Load() {
		return
	}
	if n := q.pending.Add(1); q.limit > 0 && n > q.limit {
		q.pending.Add(-1)
		q.dropped.Add(1)
		return
	}

	n := &node{cmd: cmd}
	prev := q.head.Swap(n)
	prev.next.Store(n)
}

// Drain hands every command visible to the consumer to fn in acceptance order
// and returns how many were delivered. It does not allocate.
func (q *Queue) Drain(fn func(Command)) int {
	if q.closed.Load() {
		return 0
	}

	count := 0
	for {
		next := q.tail.next.Load()
		if next == nil {
			break
		}
		q.tail = next
		fn(next.cmd)
		count++
	}
	if count > 0 {
		q.pending.Add(-int64(count))
	}
	return count
}

// DrainAll returns every pending command in acceptance order, or nil when
// nothing is pending.
func (q *Queue) DrainAll() []Command {
	var out []Command
	q.Drain(func(c Command) {
		out = append(out, c)
	})
	return out
}

// Len returns the number of accepted commands not yet drained. A closed
// queue has none.
func (q *Queue) Len() int {
	if q.closed.Load() {
		return 0
	}
	return int(q.pending.Load())
}

// Dropped returns how many commands were discarded because of the limit.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops accepting commands. Pending commands are never delivered.
func (q *Queue) Close() {
	q.closed.Store(true)
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	return q.closed.Load()
}

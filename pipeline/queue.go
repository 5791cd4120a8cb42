package pipeline

import (
	"context"
	"sync/atomic"
)

// queue is the FIFO in front of a stage. A bounded queue is a buffered
// channel; an unbounded one is fed through a pump goroutine that parks
// overflow in a slice.
type queue struct {
	in      chan any
	out     chan any
	pending atomic.Int64
}

func newQueue(depth int) *queue {
	if depth != Unbounded {
		ch := make(chan any, depth)
		return &queue{in: ch, out: ch}
	}
	q := &queue{in: make(chan any), out: make(chan any)}
	go q.pump()
	return q
}

func (q *queue) pump() {
	defer close(q.out)

	var buf []any
	in := q.in
	for in != nil || len(buf) > 0 {
		var out chan any
		var next any
		if len(buf) > 0 {
			out = q.out
			next = buf[0]
		}
		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, v)
		case out <- next:
			buf[0] = nil
			buf = buf[1:]
		}
	}
}

// push blocks until the queue accepts v.
func (q *queue) push(v any) {
	q.pending.Add(1)
	q.in <- v
}

// offer blocks until the queue accepts v, stop is closed or ctx is done.
// It reports false without an error when stop won.
func (q *queue) offer(ctx context.Context, v any, stop <-chan struct{}) (bool, error) {
	q.pending.Add(1)
	select {
	case q.in <- v:
		return true, nil
	case <-stop:
		q.pending.Add(-1)
		return false, nil
	case <-ctx.Done():
		q.pending.Add(-1)
		return false, ctx.Err()
	}
}

// receive returns the channel workers range over.
func (q *queue) receive() <-chan any {
	return q.out
}

// taken marks one value as handed to a worker.
func (q *queue) taken() {
	q.pending.Add(-1)
}

// close stops admission. Workers see the channel close once it is empty.
func (q *queue) close() {
	close(q.in)
}

// Len is the number of values accepted but not yet taken by a worker.
func (q *queue) Len() int {
	return int(q.pending.Load())
}

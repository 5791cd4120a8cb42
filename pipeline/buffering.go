package pipeline

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/kbukum/flowkit/errors"
)

// Batch groups items into slices of up to size items. With a timeout, a
// partial batch is emitted once its first item has waited that long. The
// last partial batch is emitted when the pipeline drains.
//
// size=0 means collect until timeout. timeout=0 means collect until size.
// Both zero defaults to size=1.
func Batch[T any](name string, size int, timeout time.Duration, opts ...Option) Stage {
	if size <= 0 && timeout <= 0 {
		size = 1
	}
	return Stage{
		Name:    name,
		Kind:    KindBatch,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[T](),
		Out:     reflect.TypeFor[[]T](),
		Options: NewOptions(opts...),
		Prepare: func() (Body, Flush) {
			b := &batcher[T]{size: max(size, 0), wait: max(timeout, 0)}
			return b.body, b.flush
		},
	}
}

// TumblingWindow groups items into non-overlapping windows of duration d,
// each opened by the first item that arrives while no window is open.
// Empty windows are never emitted.
func TumblingWindow[T any](name string, d time.Duration, opts ...Option) Stage {
	return Batch[T](name, 0, d, opts...)
}

// batcher holds the open batch of one built pipeline.
type batcher[T any] struct {
	size int
	wait time.Duration

	mu     sync.Mutex
	buf    []T
	gen    int
	timer  *time.Timer
	closed bool
}

func (b *batcher[T]) body(_ context.Context, _ *Runtime, in any, emit Emit) {
	item, _ := in.(T)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, item)
	if b.size > 0 && len(b.buf) >= b.size {
		b.release(emit)
		return
	}
	if b.wait > 0 && len(b.buf) == 1 {
		gen := b.gen
		b.timer = time.AfterFunc(b.wait, func() { b.expire(gen, emit) })
	}
}

func (b *batcher[T]) expire(gen int, emit Emit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || gen != b.gen || len(b.buf) == 0 {
		return
	}
	b.release(emit)
}

func (b *batcher[T]) flush(_ context.Context, _ *Runtime, emit Emit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if len(b.buf) > 0 {
		b.release(emit)
	}
}

// release emits the open batch. Callers hold mu.
func (b *batcher[T]) release(emit Emit) {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	out := b.buf
	b.buf = nil
	b.gen++
	emit(out)
}

// Debounce forwards an item only after quiet has passed without another
// one arriving. Each new item replaces the one waiting. The waiting item
// is forwarded when the pipeline drains.
func Debounce[T any](name string, quiet time.Duration, opts ...Option) Stage {
	return Stage{
		Name:    name,
		Kind:    KindFilter,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[T](),
		Out:     reflect.TypeFor[T](),
		Options: NewOptions(opts...),
		Prepare: func() (Body, Flush) {
			d := &debouncer[T]{quiet: quiet}
			return d.body, d.flush
		},
	}
}

type debouncer[T any] struct {
	quiet time.Duration

	mu      sync.Mutex
	latest  T
	waiting bool
	gen     int
	timer   *time.Timer
	closed  bool
}

func (d *debouncer[T]) body(_ context.Context, _ *Runtime, in any, emit Emit) {
	item, _ := in.(T)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.latest, d.waiting = item, true
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen, emit) })
}

func (d *debouncer[T]) fire(gen int, emit Emit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.gen || !d.waiting {
		return
	}
	d.forward(emit)
}

func (d *debouncer[T]) flush(_ context.Context, _ *Runtime, emit Emit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.waiting {
		d.forward(emit)
	}
}

// forward emits the waiting item. Callers hold mu.
func (d *debouncer[T]) forward(emit Emit) {
	var zero T
	item := d.latest
	d.latest, d.waiting = zero, false
	emit(item)
}

// Throttle forwards at most one item per interval and drops the rest.
// A zero interval forwards everything.
func Throttle[T any](name string, interval time.Duration, opts ...Option) Stage {
	return Stage{
		Name:    name,
		Kind:    KindFilter,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[T](),
		Out:     reflect.TypeFor[T](),
		Options: NewOptions(opts...),
		Prepare: func() (Body, Flush) {
			var (
				mu   sync.Mutex
				last time.Time
			)
			return func(_ context.Context, _ *Runtime, in any, emit Emit) {
				mu.Lock()
				now := time.Now()
				pass := last.IsZero() || now.Sub(last) >= interval
				if pass {
					last = now
				}
				mu.Unlock()
				if pass {
					emit(in)
				}
			}, nil
		},
	}
}

// Reduce folds every item into an accumulator seeded with init and emits
// the final accumulator once, when the pipeline drains. An item whose fold
// fails is reported and left out.
func Reduce[T, A any](name string, init A, fn func(A, T) (A, error), opts ...Option) Stage {
	return Stage{
		Name:    name,
		Kind:    KindReduce,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[T](),
		Out:     reflect.TypeFor[A](),
		Options: NewOptions(opts...),
		Prepare: func() (Body, Flush) {
			var mu sync.Mutex
			acc := init
			body := func(ctx context.Context, rt *Runtime, in any, _ Emit) {
				item, _ := in.(T)
				mu.Lock()
				defer mu.Unlock()
				var next A
				err := CallSafely(func() (err error) {
					next, err = fn(acc, item)
					return err
				})
				if err != nil {
					rt.Report(ctx, errors.StageFailed(name, err), item)
					return
				}
				acc = next
			}
			flush := func(_ context.Context, _ *Runtime, emit Emit) {
				mu.Lock()
				defer mu.Unlock()
				emit(acc)
			}
			return body, flush
		},
	}
}

package pipeline

import (
	"context"
	"iter"
)

// Iterator hands Feed one input at a time. Next reports false once the
// source is exhausted; Close is called by Feed when it returns.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// IteratorFunc is an Iterator whose Close does nothing.
type IteratorFunc[T any] func(ctx context.Context) (T, bool, error)

func (f IteratorFunc[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }

func (IteratorFunc[T]) Close() error { return nil }

// FromSlice yields items in order.
func FromSlice[T any](items []T) Iterator[T] {
	next := 0
	return IteratorFunc[T](func(context.Context) (T, bool, error) {
		var v T
		if next == len(items) {
			return v, false, nil
		}
		v = items[next]
		next++
		return v, true, nil
	})
}

// FromChannel yields values from ch until it is closed or ctx is done.
func FromChannel[T any](ch <-chan T) Iterator[T] {
	return IteratorFunc[T](func(ctx context.Context) (T, bool, error) {
		select {
		case v, ok := <-ch:
			return v, ok, nil
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	})
}

// FromSeq yields the values of a range-over-func sequence.
func FromSeq[T any](seq iter.Seq[T]) Iterator[T] {
	next, stop := iter.Pull(seq)
	return &pulled[T]{next: next, stop: stop}
}

type pulled[T any] struct {
	next func() (T, bool)
	stop func()
}

func (p *pulled[T]) Next(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := p.next()
	return v, ok, nil
}

func (p *pulled[T]) Close() error {
	p.stop()
	return nil
}

package pipeline

import (
	"context"
	"reflect"

	"github.com/kbukum/flowkit/errors"
)

// Transform maps each item to a new one. An item whose callback fails is
// reported and dropped.
func Transform[I, O any](name string, fn func(context.Context, I) (O, error), opts ...Option) Stage {
	return Stage{
		Name:    name,
		Kind:    KindTransform,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[I](),
		Out:     reflect.TypeFor[O](),
		Options: NewOptions(opts...),
		Body: func(ctx context.Context, rt *Runtime, in any, emit Emit) {
			item, _ := in.(I)
			var out O
			err := CallSafely(func() (err error) {
				out, err = fn(ctx, item)
				return err
			})
			if err != nil {
				rt.Report(ctx, errors.StageFailed(name, err), item)
				return
			}
			emit(out)
		},
	}
}

// Action runs fn for its side effect and forwards the item unchanged.
// An item whose callback fails is reported and dropped.
func Action[T any](name string, fn func(context.Context, T) error, opts ...Option) Stage {
	return Stage{
		Name:    name,
		Kind:    KindAction,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[T](),
		Out:     reflect.TypeFor[T](),
		Options: NewOptions(opts...),
		Body: func(ctx context.Context, rt *Runtime, in any, emit Emit) {
			item, _ := in.(T)
			if err := CallSafely(func() error { return fn(ctx, item) }); err != nil {
				rt.Report(ctx, errors.StageFailed(name, err), item)
				return
			}
			emit(item)
		},
	}
}

// Filter forwards the items for which keep returns true.
func Filter[T any](name string, keep func(T) bool, opts ...Option) Stage {
	return Stage{
		Name:    name,
		Kind:    KindFilter,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[T](),
		Out:     reflect.TypeFor[T](),
		Options: NewOptions(opts...),
		Body: func(ctx context.Context, rt *Runtime, in any, emit Emit) {
			item, _ := in.(T)
			var ok bool
			err := CallSafely(func() error {
				ok = keep(item)
				return nil
			})
			if err != nil {
				rt.Report(ctx, errors.StageFailed(name, err), item)
				return
			}
			if ok {
				emit(item)
			}
		},
	}
}

// FlatMap maps each item to any number of items, forwarded in order. An
// item whose callback fails is reported and nothing is forwarded for it.
func FlatMap[I, O any](name string, fn func(context.Context, I) ([]O, error), opts ...Option) Stage {
	return Stage{
		Name:    name,
		Kind:    KindFlatMap,
		Scope:   ScopeItem,
		In:      reflect.TypeFor[I](),
		Out:     reflect.TypeFor[O](),
		Options: NewOptions(opts...),
		Body: func(ctx context.Context, rt *Runtime, in any, emit Emit) {
			item, _ := in.(I)
			var outs []O
			err := CallSafely(func() (err error) {
				outs, err = fn(ctx, item)
				return err
			})
			if err != nil {
				rt.Report(ctx, errors.StageFailed(name, err), item)
				return
			}
			for _, out := range outs {
				emit(out)
			}
		},
	}
}

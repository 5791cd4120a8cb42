package splitjoin

import (
	"context"
	"reflect"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/pipeline"
)

// admit prepares an incoming child for a child stage. It reports false
// when the returned item is already Failed and must be forwarded as is.
func admit[P, T any](ctx context.Context, rt *pipeline.Runtime, op string, it *Item[P, T]) (*Item[P, T], bool) {
	switch it.State() {
	case Pending:
		return it, true
	case Succeeded:
		return it.next(), true
	case Failed:
		return it, false
	default:
		err := errors.StateViolation(op, it.State().String()).WithDetail("stage", rt.Stage())
		rt.Logger().Debug("child arrived mid-processing", logger.Fields(
			logger.FieldItemID, it.ID().String(),
			logger.FieldState, it.State().String(),
		))
		rt.Report(ctx, err, it.Payload())
		failed := it.next()
		_ = failed.CompleteFailure(err)
		return failed, false
	}
}

// run invokes fn on a Processing item and settles its final state.
func run[P, T any](ctx context.Context, rt *pipeline.Runtime, name string, it *Item[P, T], fn func() error) {
	_ = it.StartProcessing()
	if err := pipeline.CallSafely(fn); err != nil {
		wrapped := errors.StageFailed(name, err)
		rt.Report(ctx, wrapped, it.Payload())
		_ = it.CompleteFailure(wrapped)
		return
	}
	_ = it.CompleteSuccess()
}

// Process runs fn on every child for its side effect and forwards the
// child. Failed children are forwarded without calling fn.
func Process[P, T any](name string, fn func(ctx context.Context, parent P, payload T) error, opts ...pipeline.Option) pipeline.Stage {
	stage := pipeline.Stage{
		Name:    name,
		Kind:    pipeline.KindProcess,
		Scope:   pipeline.ScopeChild,
		In:      reflect.TypeFor[*Item[P, T]](),
		Out:     reflect.TypeFor[*Item[P, T]](),
		Options: pipeline.NewOptions(opts...),
	}
	if fn == nil {
		return stage
	}

	stage.Body = func(ctx context.Context, rt *pipeline.Runtime, in any, emit pipeline.Emit) {
		incoming := in.(*Item[P, T])
		it, ok := admit(ctx, rt, "process", incoming)
		if !ok {
			emit(it)
			return
		}
		run(ctx, rt, name, it, func() error {
			return fn(ctx, it.Parent(), it.Payload())
		})
		emit(it)
	}
	return stage
}

// Transform maps every child payload from I to O. A failed child is
// forwarded as a failed child of type O with a zero payload and the same
// error, without calling fn.
func Transform[P, I, O any](name string, fn func(ctx context.Context, parent P, payload I) (O, error), opts ...pipeline.Option) pipeline.Stage {
	stage := pipeline.Stage{
		Name:    name,
		Kind:    pipeline.KindChildTransform,
		Scope:   pipeline.ScopeChild,
		In:      reflect.TypeFor[*Item[P, I]](),
		Out:     reflect.TypeFor[*Item[P, O]](),
		Options: pipeline.NewOptions(opts...),
	}
	if fn == nil {
		return stage
	}

	stage.Body = func(ctx context.Context, rt *pipeline.Runtime, in any, emit pipeline.Emit) {
		incoming := in.(*Item[P, I])
		it, ok := admit(ctx, rt, "transform", incoming)
		if !ok {
			emit(failedAs[P, I, O](it))
			return
		}

		var produced O
		run(ctx, rt, name, it, func() (err error) {
			produced, err = fn(ctx, it.Parent(), it.Payload())
			return err
		})
		if it.State() == Failed {
			emit(failedAs[P, I, O](it))
			return
		}

		out := derive[P, I, O](it, produced)
		_ = out.StartProcessing()
		_ = out.CompleteSuccess()
		emit(out)
	}
	return stage
}

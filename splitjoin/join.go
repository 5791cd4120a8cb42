package splitjoin

import (
	"context"
	"reflect"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/pipeline"
)

// completeFunc handles the Result of one parent inside a join stage.
type completeFunc[P, T any] func(ctx context.Context, rt *pipeline.Runtime, res Result[P, T], emit pipeline.Emit)

func joinStage[P, T any](name string, out reflect.Type, complete completeFunc[P, T], opts []pipeline.Option) pipeline.Stage {
	stage := pipeline.Stage{
		Name:    name,
		Kind:    pipeline.KindJoin,
		Scope:   pipeline.ScopeChild,
		In:      reflect.TypeFor[*Item[P, T]](),
		Out:     out,
		Options: pipeline.NewOptions(opts...),
	}
	if complete == nil {
		return stage
	}

	stage.Prepare = func() (pipeline.Body, pipeline.Flush) {
		var acc *Accumulator[P, T]
		body := func(ctx context.Context, rt *pipeline.Runtime, in any, emit pipeline.Emit) {
			if acc == nil {
				acc = NewAccumulator[P, T](rt.Logger())
			}
			it := in.(*Item[P, T])
			if !acc.tracking(it) {
				rt.Metrics().JoinOpened(ctx, rt.Pipeline(), rt.Stage())
			}
			res, done := acc.Admit(it)
			if !done {
				return
			}
			rt.Metrics().JoinCompleted(ctx, rt.Pipeline(), rt.Stage())
			rt.Logger().Debug("parent joined", logger.Fields(
				logger.FieldParentID, res.ParentID().String(),
				"succeeded", len(res.succeeded),
				"failed", len(res.failed),
			))
			complete(ctx, rt, res, emit)
		}
		flush := func(_ context.Context, rt *pipeline.Runtime, _ pipeline.Emit) {
			if acc != nil && acc.Pending() > 0 {
				rt.Logger().Warn("drained with parents still waiting for children", logger.Fields(
					logger.FieldCount, acc.Pending(),
				))
			}
		}
		return body, flush
	}
	return stage
}

// callHandler runs handler inside a span. A failure is wrapped as
// JOIN_HANDLER_FAILED, offered to the parent, else the pipeline handler
// with the Result as the item, and reported false.
func callHandler[P, T any](ctx context.Context, rt *pipeline.Runtime, name string, res Result[P, T], handler func(context.Context) error) bool {
	ctx, span := observability.StartSpan(ctx, observability.SpanJoinHandler,
		observability.AttrPipeline.String(rt.Pipeline()),
		observability.AttrStage.String(name),
		observability.AttrParentID.String(res.ParentID().String()),
		observability.AttrChildren.Int(res.Total()),
		observability.AttrFailed.Int(len(res.failed)),
	)
	defer span.End()

	if err := pipeline.CallSafely(func() error { return handler(ctx) }); err != nil {
		observability.Fail(ctx, err)
		rt.ReportTo(ctx, errors.JoinHandlerFailed(name, err), res.Parent(), res)
		return false
	}
	return true
}

// Join ends a pipeline: handler is called once per parent with its Result.
// A nil handler makes the stage a plain completion barrier.
func Join[P, T any](name string, handler func(context.Context, Result[P, T]) error, opts ...pipeline.Option) pipeline.Stage {
	return joinStage[P, T](name, nil, func(ctx context.Context, rt *pipeline.Runtime, res Result[P, T], _ pipeline.Emit) {
		if handler == nil {
			return
		}
		callHandler(ctx, rt, name, res, func(ctx context.Context) error {
			return handler(ctx, res)
		})
	}, opts)
}

// JoinInto calls handler once per parent and emits what it returns.
// Nothing is emitted for a parent whose handler fails.
func JoinInto[P, T, O any](name string, handler func(context.Context, Result[P, T]) (O, error), opts ...pipeline.Option) pipeline.Stage {
	if handler == nil {
		return joinStage[P, T](name, reflect.TypeFor[O](), nil, opts)
	}
	return joinStage[P, T](name, reflect.TypeFor[O](), func(ctx context.Context, rt *pipeline.Runtime, res Result[P, T], emit pipeline.Emit) {
		var out O
		ok := callHandler(ctx, rt, name, res, func(ctx context.Context) (err error) {
			out, err = handler(ctx, res)
			return err
		})
		if ok {
			emit(out)
		}
	}, opts)
}

// Collect emits the Result of every completed parent.
func Collect[P, T any](name string, opts ...pipeline.Option) pipeline.Stage {
	return joinStage[P, T](name, reflect.TypeFor[Result[P, T]](), func(_ context.Context, _ *pipeline.Runtime, res Result[P, T], emit pipeline.Emit) {
		emit(res)
	}, opts)
}

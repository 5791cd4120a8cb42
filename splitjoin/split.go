package splitjoin

import (
	"context"
	"reflect"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/pipeline"
)

// Split fans each parent out into one child per element returned by
// splitter. All children of a parent share its identity and the element
// count. A nil parent, an empty result or a failing splitter yields no
// children, so such a parent never reaches the join.
func Split[P, T any](name string, splitter func(context.Context, P) ([]T, error), opts ...pipeline.Option) pipeline.Stage {
	stage := pipeline.Stage{
		Name:    name,
		Kind:    pipeline.KindSplit,
		Scope:   pipeline.ScopeParent,
		In:      reflect.TypeFor[P](),
		Out:     reflect.TypeFor[*Item[P, T]](),
		Options: pipeline.NewOptions(opts...),
	}
	if splitter == nil {
		return stage
	}

	stage.Body = func(ctx context.Context, rt *pipeline.Runtime, in any, emit pipeline.Emit) {
		value, _ := in.(P)
		if isNil(value) {
			rt.Logger().Debug("nil parent skipped")
			return
		}

		parent := NewParent(value)
		ctx, span := observability.StartSpan(ctx, observability.SpanSplit,
			observability.AttrStage.String(name),
			observability.AttrParentID.String(parent.ID().String()),
		)
		defer span.End()

		var children []T
		err := pipeline.CallSafely(func() (err error) {
			children, err = splitter(ctx, value)
			return err
		})
		if err != nil {
			observability.Fail(ctx, err)
			rt.Report(ctx, errors.SplitFailed(name, err), value)
			return
		}
		observability.Annotate(ctx, observability.AttrChildren.Int(len(children)))

		if len(children) == 0 {
			rt.Logger().Debug("parent produced no children", logger.Fields(
				logger.FieldParentID, parent.ID().String(),
			))
			return
		}

		for _, child := range children {
			item, _ := NewItem(parent, child, len(children))
			emit(item)
		}
	}
	return stage
}

// isNil reports whether v is nil or a nil pointer, map, slice, func,
// channel or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

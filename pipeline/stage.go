package pipeline

import (
	"context"
	"reflect"
)

// Kind identifies what a stage does with its input.
type Kind int

const (
	// KindTransform maps one whole item to one new item.
	KindTransform Kind = iota + 1
	// KindAction runs a side effect and forwards the item.
	KindAction
	// KindFilter forwards items that satisfy a predicate.
	KindFilter
	// KindSplit fans one parent out into child items.
	KindSplit
	// KindProcess runs a side effect on a child item.
	KindProcess
	// KindChildTransform maps a child payload to a new child payload.
	KindChildTransform
	// KindJoin gathers the children of each parent. Always runs with one worker.
	KindJoin
	// KindFlatMap maps one whole item to any number of items.
	KindFlatMap
	// KindBatch groups items into slices by count or time.
	KindBatch
	// KindReduce folds every item into one value emitted at the end.
	KindReduce
)

func (k Kind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindAction:
		return "action"
	case KindFilter:
		return "filter"
	case KindSplit:
		return "split"
	case KindProcess:
		return "process"
	case KindChildTransform:
		return "child-transform"
	case KindJoin:
		return "join"
	case KindFlatMap:
		return "flat-map"
	case KindBatch:
		return "batch"
	case KindReduce:
		return "reduce"
	default:
		return "unknown"
	}
}

// Scope tells whether a stage sees whole items, parents or child items.
type Scope int

const (
	ScopeItem Scope = iota
	ScopeParent
	ScopeChild
)

func (s Scope) String() string {
	switch s {
	case ScopeParent:
		return "parent"
	case ScopeChild:
		return "child"
	default:
		return "item"
	}
}

// Emit forwards one value to the next stage. It blocks while a bounded
// downstream queue is full. Values emitted by the last stage are discarded.
type Emit func(out any)

// Body handles one input value. Failures are reported through rt and
// never returned: a body decides for itself whether to emit anything.
type Body func(ctx context.Context, rt *Runtime, in any, emit Emit)

// Flush runs once after a stage has handled its last input and before the
// next stage stops accepting. Buffering stages emit what they still hold.
type Flush func(ctx context.Context, rt *Runtime, emit Emit)

// Stage describes one step of a pipeline.
type Stage struct {
	Name  string
	Kind  Kind
	Scope Scope
	// In is the type a stage accepts.
	In reflect.Type
	// Out is the type a stage emits, nil when it emits nothing.
	Out     reflect.Type
	Options Options
	Body    Body
	Flush   Flush
	// Prepare, when set, is called once per built pipeline to create a
	// stateful Body and its optional Flush. It takes precedence over both.
	Prepare func() (Body, Flush)
}

// Terminal reports whether the stage emits nothing.
func (s Stage) Terminal() bool {
	return s.Out == nil
}

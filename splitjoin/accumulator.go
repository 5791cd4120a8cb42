package splitjoin

import (
	"github.com/kbukum/flowkit/logger"
)

type aggregate[P, T any] struct {
	expected  int
	received  int
	succeeded []Success[T]
	failed    []Failure[T]
}

// Accumulator gathers children per parent until all of them arrived.
// It is not safe for concurrent use; join stages run on a single worker.
type Accumulator[P, T any] struct {
	open map[*Parent[P]]*aggregate[P, T]
	log  *logger.Logger
}

// NewAccumulator creates an empty accumulator. A nil log discards output.
func NewAccumulator[P, T any](log *logger.Logger) *Accumulator[P, T] {
	if log == nil {
		log = logger.Nop()
	}
	return &Accumulator[P, T]{
		open: make(map[*Parent[P]]*aggregate[P, T]),
		log:  log,
	}
}

// Admit records one child. When it completes its parent, the parent's
// entry is dropped and the Result is returned with true.
//
// A child that reaches the join without a terminal state is counted as
// Succeeded.
func (a *Accumulator[P, T]) Admit(it *Item[P, T]) (Result[P, T], bool) {
	agg, ok := a.open[it.parent]
	if !ok {
		agg = &aggregate[P, T]{expected: it.siblings}
		a.open[it.parent] = agg
	}

	if !it.State().Terminal() {
		a.log.Debug("child reached join without terminal state, counted as succeeded", logger.Fields(
			logger.FieldItemID, it.ID().String(),
			logger.FieldParentID, it.ParentID().String(),
			logger.FieldState, it.State().String(),
		))
		if it.State() == Pending {
			_ = it.StartProcessing()
		}
		_ = it.CompleteSuccess()
	}

	switch it.State() {
	case Succeeded:
		agg.succeeded = append(agg.succeeded, Success[T]{ID: it.id, Payload: it.payload})
	default:
		agg.failed = append(agg.failed, Failure[T]{ID: it.id, Payload: it.payload, Err: it.err})
	}
	agg.received++

	if agg.received < agg.expected {
		return Result[P, T]{}, false
	}
	delete(a.open, it.parent)
	return Result[P, T]{
		parent:    it.parent,
		succeeded: agg.succeeded,
		failed:    agg.failed,
	}, true
}

// Pending returns the number of parents still waiting for children.
func (a *Accumulator[P, T]) Pending() int {
	return len(a.open)
}

func (a *Accumulator[P, T]) tracking(it *Item[P, T]) bool {
	_, ok := a.open[it.parent]
	return ok
}

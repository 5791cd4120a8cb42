package splitjoin

import (
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kbukum/flowkit/errors"
)

// State is the processing state of a child item.
type State int

const (
	Pending State = iota
	Processing
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// errUnspecified stands in for a nil error passed to CompleteFailure.
var errUnspecified = stderrors.New("child failed without an error")

// Parent is the identity a split gives to one admitted parent value.
type Parent[P any] struct {
	id    uuid.UUID
	value P
}

// NewParent wraps value in a fresh identity.
func NewParent[P any](value P) *Parent[P] {
	return &Parent[P]{id: uuid.New(), value: value}
}

// ID returns the parent identity.
func (p *Parent[P]) ID() uuid.UUID { return p.id }

// Value returns the parent value.
func (p *Parent[P]) Value() P { return p.value }

// Item is one child of a parent, travelling through child stages.
// An item is owned by one stage worker at a time.
type Item[P, T any] struct {
	id       uuid.UUID
	parent   *Parent[P]
	payload  T
	siblings int
	state    State
	err      error
}

// NewItem creates a Pending child. siblings is the number of children the
// parent was split into, this one included, so it is at least 1.
func NewItem[P, T any](parent *Parent[P], payload T, siblings int) (*Item[P, T], error) {
	if parent == nil {
		return nil, errors.InvalidConfig("child item requires a parent")
	}
	if siblings < 1 {
		return nil, errors.InvalidConfig(fmt.Sprintf("sibling count must be at least 1, got %d", siblings))
	}
	return &Item[P, T]{
		id:       uuid.New(),
		parent:   parent,
		payload:  payload,
		siblings: siblings,
		state:    Pending,
	}, nil
}

// ID returns the child identity, kept across child stages.
func (it *Item[P, T]) ID() uuid.UUID { return it.id }

// Parent returns the parent value.
func (it *Item[P, T]) Parent() P { return it.parent.value }

// ParentID returns the identity of the parent.
func (it *Item[P, T]) ParentID() uuid.UUID { return it.parent.id }

// Payload returns the child payload.
func (it *Item[P, T]) Payload() T { return it.payload }

// Siblings returns the number of children of the parent, this one included.
func (it *Item[P, T]) Siblings() int { return it.siblings }

// State returns the current state.
func (it *Item[P, T]) State() State { return it.state }

// Err returns the failure, nil unless the item is Failed.
func (it *Item[P, T]) Err() error { return it.err }

// StartProcessing moves a Pending item to Processing.
func (it *Item[P, T]) StartProcessing() error {
	if it.state != Pending {
		return errors.StateViolation("start processing", it.state.String())
	}
	it.state = Processing
	return nil
}

// CompleteSuccess moves a Processing item to Succeeded.
func (it *Item[P, T]) CompleteSuccess() error {
	if it.state != Processing {
		return errors.StateViolation("complete", it.state.String())
	}
	it.state = Succeeded
	return nil
}

// CompleteFailure moves a Pending or Processing item to Failed.
func (it *Item[P, T]) CompleteFailure(err error) error {
	if it.state.Terminal() {
		return errors.StateViolation("fail", it.state.String())
	}
	if err == nil {
		err = errUnspecified
	}
	it.state = Failed
	it.err = err
	return nil
}

// next returns a Pending copy of a Succeeded item for the following stage.
func (it *Item[P, T]) next() *Item[P, T] {
	return &Item[P, T]{
		id:       it.id,
		parent:   it.parent,
		payload:  it.payload,
		siblings: it.siblings,
		state:    Pending,
	}
}

// derive creates a child of another payload type for the same parent.
func derive[P, I, O any](it *Item[P, I], payload O) *Item[P, O] {
	return &Item[P, O]{
		id:       it.id,
		parent:   it.parent,
		payload:  payload,
		siblings: it.siblings,
		state:    Pending,
	}
}

// failedAs re-types a Failed item, carrying its error and a zero payload.
func failedAs[P, I, O any](it *Item[P, I]) *Item[P, O] {
	var zero O
	out := derive[P, I, O](it, zero)
	out.state = Failed
	out.err = it.err
	return out
}

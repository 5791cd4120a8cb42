package splitjoin

import "github.com/google/uuid"

// Success is a child that completed without error.
type Success[T any] struct {
	ID      uuid.UUID
	Payload T
}

// Failure is a child that failed, with the error it failed with.
type Failure[T any] struct {
	ID      uuid.UUID
	Payload T
	Err     error
}

// Result is the outcome of all children of one parent. It is built once
// by a join and never changes afterwards.
type Result[P, T any] struct {
	parent    *Parent[P]
	succeeded []Success[T]
	failed    []Failure[T]
}

// Parent returns the parent value.
func (r Result[P, T]) Parent() P { return r.parent.value }

// ParentID returns the identity of the parent.
func (r Result[P, T]) ParentID() uuid.UUID { return r.parent.id }

// Succeeded returns the children that succeeded, in arrival order.
func (r Result[P, T]) Succeeded() []Success[T] {
	return append([]Success[T](nil), r.succeeded...)
}

// Failed returns the children that failed, in arrival order.
func (r Result[P, T]) Failed() []Failure[T] {
	return append([]Failure[T](nil), r.failed...)
}

// Total is the number of children of the parent.
func (r Result[P, T]) Total() int {
	return len(r.succeeded) + len(r.failed)
}

// OK reports whether every child succeeded.
func (r Result[P, T]) OK() bool {
	return len(r.failed) == 0
}

// Payloads returns the payloads of the succeeded children.
func (r Result[P, T]) Payloads() []T {
	out := make([]T, len(r.succeeded))
	for i, s := range r.succeeded {
		out[i] = s.Payload
	}
	return out
}

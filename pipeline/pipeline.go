package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/flowkit/component"
	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
)

// State is the lifecycle state of a pipeline.
type State int

const (
	StateBuilt State = iota
	StateRunning
	StateDraining
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// stageRunner owns the queue and workers of one stage.
type stageRunner struct {
	stage Stage
	rt    *Runtime
	inbox *queue
	next  *queue
	wg    sync.WaitGroup
}

func (s *stageRunner) work(ctx context.Context) {
	defer s.wg.Done()
	for in := range s.inbox.receive() {
		s.inbox.taken()
		s.rt.metrics.RecordIn(ctx, s.rt.pipeline, s.stage.Name)
		start := time.Now()
		s.invoke(ctx, in)
		s.rt.metrics.RecordDuration(ctx, s.rt.pipeline, s.stage.Name, time.Since(start))
	}
}

func (s *stageRunner) invoke(ctx context.Context, in any) {
	defer func() {
		if r := recover(); r != nil {
			s.rt.Report(ctx, errors.Panic(r).WithDetail("stage", s.stage.Name), in)
		}
	}()
	s.stage.Body(ctx, s.rt, in, func(out any) { s.emit(ctx, out) })
}

func (s *stageRunner) flush(ctx context.Context) {
	if s.stage.Flush == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.rt.Report(ctx, errors.Panic(r).WithDetail("stage", s.stage.Name), nil)
		}
	}()
	s.stage.Flush(ctx, s.rt, func(out any) { s.emit(ctx, out) })
}

func (s *stageRunner) emit(ctx context.Context, out any) {
	s.rt.metrics.RecordOut(ctx, s.rt.pipeline, s.stage.Name, 1)
	if s.next != nil {
		s.next.push(out)
	}
}

// Pipeline is a built chain of stages accepting items of type T.
type Pipeline[T any] struct {
	name    string
	stages  []*stageRunner
	log     *logger.Logger
	timeout time.Duration

	mu    sync.RWMutex
	state State
	done  chan struct{}

	// closing is closed when Drain stops admission. Posts blocked on a
	// full first queue give up on it.
	closing chan struct{}
	posting sync.WaitGroup
}

// Name returns the pipeline name.
func (p *Pipeline[T]) Name() string { return p.name }

// State returns the current lifecycle state.
func (p *Pipeline[T]) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Done is closed once the pipeline has completed.
func (p *Pipeline[T]) Done() <-chan struct{} { return p.done }

// Stages returns the stage descriptors with their effective options.
func (p *Pipeline[T]) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.stage
	}
	return out
}

// Start launches the worker pools. Callbacks receive ctx.
func (p *Pipeline[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateBuilt {
		return errors.StateViolation("start pipeline", p.state.String())
	}

	for i, s := range p.stages {
		for range s.stage.Options.MaxParallelism {
			s.wg.Add(1)
			go s.work(ctx)
		}
		last := i == len(p.stages)-1
		go func(s *stageRunner) {
			s.wg.Wait()
			s.flush(ctx)
			if !last {
				s.next.close()
				return
			}
			p.complete()
		}(s)
	}

	p.state = StateRunning
	p.log.Info("pipeline started", logger.Fields(logger.FieldCount, len(p.stages)))
	return nil
}

func (p *Pipeline[T]) complete() {
	p.mu.Lock()
	p.state = StateCompleted
	p.mu.Unlock()
	p.log.Info("pipeline completed")
	close(p.done)
}

// Post submits one item to the first stage. It blocks while a bounded
// first queue is full, until capacity frees up or ctx is done.
// A Post still waiting when Drain begins is rejected with PIPELINE_CLOSED.
func (p *Pipeline[T]) Post(ctx context.Context, item T) error {
	p.mu.RLock()
	switch p.state {
	case StateBuilt:
		p.mu.RUnlock()
		return errors.PipelineNotRunning(p.name)
	case StateDraining, StateCompleted:
		p.mu.RUnlock()
		return errors.PipelineClosed(p.name)
	}
	p.posting.Add(1)
	p.mu.RUnlock()
	defer p.posting.Done()

	accepted, err := p.stages[0].inbox.offer(ctx, item, p.closing)
	if err != nil {
		return err
	}
	if !accepted {
		return errors.PipelineClosed(p.name)
	}
	return nil
}

// PostAll submits items in order and stops at the first rejection.
func (p *Pipeline[T]) PostAll(ctx context.Context, items ...T) error {
	for _, item := range items {
		if err := p.Post(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Drain stops admission and waits until every accepted item has left the
// last stage. ctx only bounds the wait. Calling Drain again waits on the
// same completion.
func (p *Pipeline[T]) Drain(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateBuilt:
		p.state = StateCompleted
		close(p.done)
	case StateRunning:
		p.state = StateDraining
		close(p.closing)
		go func() {
			p.posting.Wait()
			p.stages[0].inbox.close()
		}()
		p.log.Info("pipeline draining")
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains the pipeline, bounded by the configured drain timeout.
func (p *Pipeline[T]) Stop(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.Drain(ctx)
}

// Queued is the number of items accepted by some stage and not yet picked
// up by one of its workers.
func (p *Pipeline[T]) Queued() int {
	n := 0
	for _, s := range p.stages {
		n += s.inbox.Len()
	}
	return n
}

// Health reports whether the pipeline accepts input.
func (p *Pipeline[T]) Health(_ context.Context) component.Health {
	h := component.Health{Name: p.name}
	switch state := p.State(); state {
	case StateRunning:
		h.Status = component.StatusHealthy
		h.Message = fmt.Sprintf("running, %d queued", p.Queued())
	case StateDraining:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("draining, %d queued", p.Queued())
	default:
		h.Status = component.StatusUnhealthy
		h.Message = state.String()
	}
	return h
}

// Describe lists the stages for the startup summary.
func (p *Pipeline[T]) Describe() component.Description {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.stage.Name
	}
	return component.Description{
		Name:    p.name,
		Type:    "pipeline",
		Details: strings.Join(names, " -> "),
	}
}

var _ component.Component = (*Pipeline[int])(nil)
var _ component.Describable = (*Pipeline[int])(nil)

// Run starts p, posts items and drains it.
func Run[T any](ctx context.Context, p *Pipeline[T], items ...T) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	if err := p.PostAll(ctx, items...); err != nil {
		_ = p.Drain(ctx)
		return err
	}
	return p.Drain(ctx)
}

// Feed posts every value of it to p and closes it. p must be running.
func Feed[T any](ctx context.Context, p *Pipeline[T], it Iterator[T]) error {
	defer it.Close()
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := p.Post(ctx, item); err != nil {
			return err
		}
	}
}

package pipeline

import (
	"fmt"

	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/validation"
)

// Unbounded is the MaxQueueDepth value meaning no limit.
const Unbounded = 0

// Options are the per-stage concurrency settings.
type Options struct {
	// MaxParallelism is the number of workers pulling from the stage queue.
	MaxParallelism int `json:"max_parallelism" validate:"gte=1"`
	// MaxQueueDepth caps the stage queue. Unbounded (0) means no cap.
	MaxQueueDepth int `json:"max_queue_depth" validate:"gte=0"`
}

// DefaultOptions returns one worker and an unbounded queue.
func DefaultOptions() Options {
	return Options{MaxParallelism: 1, MaxQueueDepth: Unbounded}
}

// Validate checks the options.
func (o Options) Validate() error {
	return validation.ValidateConfig(o)
}

// Bounded reports whether the queue has a capacity limit.
func (o Options) Bounded() bool {
	return o.MaxQueueDepth != Unbounded
}

func (o Options) String() string {
	depth := "unbounded"
	if o.Bounded() {
		depth = fmt.Sprintf("%d", o.MaxQueueDepth)
	}
	return fmt.Sprintf("parallelism=%d queue=%s", o.MaxParallelism, depth)
}

// Option configures stage Options.
type Option func(*Options)

// WithParallelism sets the number of workers.
func WithParallelism(n int) Option {
	return func(o *Options) { o.MaxParallelism = n }
}

// WithQueueDepth bounds the stage queue.
func WithQueueDepth(n int) Option {
	return func(o *Options) { o.MaxQueueDepth = n }
}

// WithOptions applies configured overrides. Zero fields keep the current
// value, so a config entry never lifts a queue bound set in code.
func WithOptions(sc config.StageConfig) Option {
	return func(o *Options) {
		if sc.MaxParallelism > 0 {
			o.MaxParallelism = sc.MaxParallelism
		}
		if sc.MaxQueueDepth > 0 {
			o.MaxQueueDepth = sc.MaxQueueDepth
		}
	}
}

// NewOptions applies opts over DefaultOptions.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

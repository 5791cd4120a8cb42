package pipeline

import (
	"fmt"
	"reflect"
	"time"

	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/validation"
)

type buildConfig struct {
	name    string
	log     *logger.Logger
	handler ErrorHandler
	metrics *observability.StageMetrics
	cfg     *config.PipelineConfig
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithName names the pipeline in logs, metrics and errors.
func WithName(name string) BuildOption {
	return func(c *buildConfig) { c.name = name }
}

// WithLogger sets the pipeline logger. Without it the pipeline logs through
// logger.Get with its name.
func WithLogger(l *logger.Logger) BuildOption {
	return func(c *buildConfig) { c.log = l }
}

// WithErrorHandler sets the fallback for failures not claimed by an ErrorReceiver.
func WithErrorHandler(h ErrorHandler) BuildOption {
	return func(c *buildConfig) { c.handler = h }
}

// WithMetrics records stage instruments on m.
func WithMetrics(m *observability.StageMetrics) BuildOption {
	return func(c *buildConfig) { c.metrics = m }
}

// WithConfig applies configured name, drain timeout and per-stage overrides.
func WithConfig(cfg config.PipelineConfig) BuildOption {
	return func(c *buildConfig) { c.cfg = &cfg }
}

// Build validates stages and wires them into a pipeline accepting T.
func Build[T any](stages []Stage, opts ...BuildOption) (*Pipeline[T], error) {
	bc := &buildConfig{name: "pipeline"}
	var timeout time.Duration
	for _, opt := range opts {
		opt(bc)
	}
	if bc.cfg != nil {
		if err := bc.cfg.Validate(); err != nil {
			return nil, err
		}
		if bc.cfg.Name != "" {
			bc.name = bc.cfg.Name
		}
		timeout = bc.cfg.DrainTimeout
	}
	if bc.log == nil {
		bc.log = logger.Get(bc.name)
	}
	if bc.metrics == nil {
		bc.metrics = observability.NoopStageMetrics()
	}
	log := bc.log.WithFields(logger.Fields(logger.FieldPipeline, bc.name))

	if len(stages) == 0 {
		return nil, errors.InvalidConfig(fmt.Sprintf("pipeline %q has no stages", bc.name))
	}

	v := validation.New()
	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		field := fmt.Sprintf("stages[%d]", i)
		v.Required(field+".name", s.Name)
		if s.Name != "" {
			v.Unique(field+".name", s.Name, seen)
		}
		v.Custom(s.Body != nil || s.Prepare != nil, field+".body", "is required")
		v.Custom(s.In != nil, field+".in", "is required")
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if err := checkTypes(reflect.TypeFor[T](), stages); err != nil {
		return nil, err
	}

	p := &Pipeline[T]{
		name:    bc.name,
		log:     log,
		timeout: timeout,
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}

	runners := make([]*stageRunner, len(stages))
	for i, s := range stages {
		if bc.cfg != nil {
			if sc, ok := bc.cfg.Stage(s.Name); ok {
				WithOptions(sc)(&s.Options)
			}
		}
		if err := s.Options.Validate(); err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		if s.Prepare != nil {
			s.Body, s.Flush = s.Prepare()
		}
		if s.Kind == KindJoin && s.Options.MaxParallelism > 1 {
			log.Warn("join stage runs with a single worker", logger.Fields(
				logger.FieldStage, s.Name,
				"requested", s.Options.MaxParallelism,
			))
			s.Options.MaxParallelism = 1
		}

		runners[i] = &stageRunner{
			stage: s,
			inbox: newQueue(s.Options.MaxQueueDepth),
			rt: &Runtime{
				pipeline: bc.name,
				stage:    s.Name,
				kind:     s.Kind,
				log:      log.WithFields(logger.Fields(logger.FieldStage, s.Name, logger.FieldKind, s.Kind.String())),
				handler:  bc.handler,
				metrics:  bc.metrics,
			},
		}
	}
	for i := 0; i < len(runners)-1; i++ {
		runners[i].next = runners[i+1].inbox
	}
	p.stages = runners

	log.Debug("pipeline built", logger.Fields(logger.FieldCount, len(runners)))
	return p, nil
}

func checkTypes(input reflect.Type, stages []Stage) error {
	if !input.AssignableTo(stages[0].In) {
		return errors.TypeMismatch(fmt.Sprintf("input of stage %q", stages[0].Name), stages[0].In, input)
	}
	for i := 1; i < len(stages); i++ {
		prev, cur := stages[i-1], stages[i]
		where := fmt.Sprintf("link %q -> %q", prev.Name, cur.Name)
		if prev.Terminal() {
			return errors.TypeMismatch(where, cur.In, "nothing")
		}
		if !prev.Out.AssignableTo(cur.In) {
			return errors.TypeMismatch(where, cur.In, prev.Out)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/kbukum/flowkit/validation"
)

// StageConfig overrides the concurrency settings of one stage. Zero
// fields leave the stage's own setting in place.
type StageConfig struct {
	MaxParallelism int `yaml:"max_parallelism" mapstructure:"max_parallelism" validate:"gte=0"`
	MaxQueueDepth  int `yaml:"max_queue_depth" mapstructure:"max_queue_depth" validate:"gte=0"`
}

// PipelineConfig configures a pipeline and its stages by stage name.
type PipelineConfig struct {
	Name         string                 `yaml:"name" mapstructure:"name"`
	DrainTimeout time.Duration          `yaml:"drain_timeout" mapstructure:"drain_timeout" validate:"gte=0"`
	Stages       map[string]StageConfig `yaml:"stages" mapstructure:"stages" validate:"dive"`
}

// ApplyDefaults applies default values to pipeline configuration.
func (c *PipelineConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "pipeline"
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 30 * time.Second
	}
}

// Validate validates pipeline configuration.
func (c *PipelineConfig) Validate() error {
	if err := validation.ValidateConfig(c); err != nil {
		return fmt.Errorf("config.pipeline: %w", err)
	}
	return nil
}

// Stage returns the overrides for name and whether any were configured.
func (c *PipelineConfig) Stage(name string) (StageConfig, bool) {
	sc, ok := c.Stages[name]
	return sc, ok
}

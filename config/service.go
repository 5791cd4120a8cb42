package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/validation"
)

// Config is what Load accepts: a struct that can default and check itself.
// Embedding ServiceConfig provides all three methods.
type Config interface {
	GetServiceConfig() *ServiceConfig
	ApplyDefaults()
	Validate() error
}

// Environments a service may declare.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig is the section shared by every flowkit binary. Embed it
// with squash so its keys sit at the top level of the file:
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Reject string `yaml:"reject" mapstructure:"reject"`
//	}
type ServiceConfig struct {
	Name        string         `yaml:"name" mapstructure:"name"`
	Environment string         `yaml:"environment" mapstructure:"environment"`
	Version     string         `yaml:"version" mapstructure:"version"`
	Debug       bool           `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config  `yaml:"logging" mapstructure:"logging"`
	Pipeline    PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
}

func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults defaults the environment to development, which also turns
// on Debug, and tags log lines with the service name.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = Environments[0]
	}
	c.Debug = c.Debug || c.Environment == "development"
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
}

// Validate checks the shared section. Embedding structs call it first.
func (c *ServiceConfig) Validate() error {
	v := validation.New().
		Required("config.name", c.Name).
		Custom(slices.Contains(Environments, c.Environment), "config.environment",
			fmt.Sprintf("must be one of %v (got: %s)", Environments, c.Environment))
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return c.Pipeline.Validate()
}

package main

import (
	"fmt"
	"time"

	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/server"
)

// AppConfig is the configuration of the flowkit binary.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Server               server.Config   `yaml:"server" mapstructure:"server"`
	Telemetry            TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	// Reject is the character the demo process stage refuses.
	Reject string `yaml:"reject" mapstructure:"reject"`
}

// TelemetryConfig switches the OTLP/HTTP exporters on.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	ExportInterval time.Duration `yaml:"export_interval" mapstructure:"export_interval"`
}

func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Telemetry.ExportInterval == 0 {
		c.Telemetry.ExportInterval = 15 * time.Second
	}
	if c.Reject == "" {
		c.Reject = "b"
	}
}

func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be within [0, 1] (got: %v)", c.Telemetry.SampleRate)
	}
	if len([]rune(c.Reject)) != 1 {
		return fmt.Errorf("reject must be a single character (got: %q)", c.Reject)
	}
	return nil
}

func (c *AppConfig) rejected() rune {
	return []rune(c.Reject)[0]
}

package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/flowkit/server/middleware"
	"github.com/kbukum/flowkit/validation"
)

// Config is the server section of a flowkit service config. Port 0 asks
// the kernel for a free port.
type Config struct {
	Host         string                `yaml:"host" mapstructure:"host"`
	Port         int                   `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  time.Duration         `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration         `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration         `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	StopTimeout  time.Duration         `yaml:"stop_timeout" mapstructure:"stop_timeout" validate:"gte=0"`
	MaxBodyBytes int64                 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
	CORS         middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

func orDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	orDefault(&c.Port, 8080)
	orDefault(&c.ReadTimeout, 15*time.Second)
	orDefault(&c.WriteTimeout, 15*time.Second)
	orDefault(&c.IdleTimeout, time.Minute)
	orDefault(&c.StopTimeout, 5*time.Second)
	orDefault(&c.MaxBodyBytes, middleware.DefaultMaxBodyBytes)

	if c.CORS.AllowedOrigins == nil {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.CORS.AllowedMethods == nil {
		c.CORS.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	if c.CORS.AllowedHeaders == nil {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID}
	}
}

// Validate rejects out-of-range ports and negative limits.
func (c *Config) Validate() error {
	if err := validation.ValidateConfig(c); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	return nil
}

// Addr is the host:port to listen on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

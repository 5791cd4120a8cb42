package observability

import (
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
)

// Exporter holds what trace and metric export have in common: where to
// send data and how to describe the process sending it.
type Exporter struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the collector's OTLP/HTTP host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
}

func defaultExporter(service string) Exporter {
	return Exporter{
		ServiceName:    service,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
	}
}

func (e Exporter) resource() *resource.Resource {
	return resource.NewSchemaless(
		AttrServiceName.String(e.ServiceName),
		attrServiceVersion.String(e.ServiceVersion),
		attrEnvironment.String(e.Environment),
	)
}

// MeterConfig configures OTLP metric export.
type MeterConfig struct {
	Exporter `yaml:",inline" mapstructure:",squash"`
	// Interval between periodic exports. Zero keeps the SDK default.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig exports to a local collector every 15 seconds.
func DefaultMeterConfig(service string) MeterConfig {
	return MeterConfig{Exporter: defaultExporter(service), Interval: 15 * time.Second}
}

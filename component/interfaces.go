package component

import "context"

// HealthStatus is the coarse state a component reports.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in a health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-running part of a flowkit process, such as a
// pipeline or the HTTP server.
type Component interface {
	Name() string
	// Start begins accepting work. It must not block until the work ends.
	Start(ctx context.Context) error
	// Stop finishes in-flight work within ctx and releases resources.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is logged when a component starts.
type Description struct {
	Name    string
	Type    string // "pipeline", "server"
	Details string // e.g. "words -> characters -> report"
}

// Describable components report a Description at start.
type Describable interface {
	Describe() Description
}

// Overall folds a report into one status: unhealthy wins over degraded,
// degraded over healthy. An empty report is healthy.
func Overall(report []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range report {
		if h.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if h.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

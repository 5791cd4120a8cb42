package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowkit/component"
)

// HealthChecker reports the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// probe is the body shared by /health and /alive.
type probe struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Timestamp  time.Time          `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
}

// Health folds the checker's report with component.Overall. Degraded still
// answers 200 so a draining pipeline is not restarted; unhealthy answers 503.
func Health(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var report []component.Health
		if checker != nil {
			report = checker(c.Request.Context())
		}
		overall := component.Overall(report)

		code := http.StatusOK
		if overall == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, probe{
			Status:     string(overall),
			Service:    service,
			Timestamp:  time.Now().UTC(),
			Components: report,
		})
	}
}

// Liveness answers 200 whenever the process can serve HTTP at all.
func Liveness(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, probe{Status: "alive", Service: service, Timestamp: time.Now().UTC()})
	}
}

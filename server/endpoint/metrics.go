package endpoint

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// QueueReporter is implemented by pipelines that can report how many inputs
// are waiting across their stage queues.
type QueueReporter interface {
	Name() string
	Queued() int
}

// Metrics returns a handler that reports runtime memory and goroutine figures
// plus the queued item count of each reporter.
func Metrics(reporters ...QueueReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		queued := make(map[string]int, len(reporters))
		for _, r := range reporters {
			queued[r.Name()] = r.Queued()
		}

		c.JSON(http.StatusOK, gin.H{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"goroutines": runtime.NumGoroutine(),
			"memory": gin.H{
				"alloc_mb": m.Alloc / 1024 / 1024,
				"sys_mb":   m.Sys / 1024 / 1024,
				"gc_runs":  m.NumGC,
			},
			"queued": queued,
		})
	}
}

package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection. Requests are
// labelled by route template so ids do not explode the label space.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures operation duration
type Timer struct {
	start     time.Time
	metrics   *Metrics
	operation string
}

// NewTimer creates a new timer
func NewTimer(m *Metrics, operation string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   m,
		operation: operation,
	}
}

// Stop stops the timer and records the duration under outcome
func (t *Timer) Stop(outcome string) {
	t.metrics.RecordOperation(t.operation, outcome, time.Since(t.start))
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

// Pinger checks a backing dependency.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics http.Handler
	checks  map[string]Pinger
}

// NewMetricsHandler constructs a metrics handler. checks are consulted by
// Ready.
func NewMetricsHandler(metrics http.Handler, checks map[string]Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether every dependency answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{}
	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, name+" unavailable"))
			return
		}
		status[name] = "ok"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": status})
}

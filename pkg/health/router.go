package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires the ops HTTP surface onto an existing gin engine:
// /healthz for the aggregated check result, /status for a lighter liveness
// probe, /metrics for the Prometheus scrape target.
func (h *HealthChecker) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.handleHealthz)
	router.GET("/status", h.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *HealthChecker) handleHealthz(c *gin.Context) {
	aggregated := h.GetAggregatedHealth()

	status := http.StatusOK
	if aggregated.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, aggregated)
}

func (h *HealthChecker) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"healthy": h.IsHealthy(),
	})
}

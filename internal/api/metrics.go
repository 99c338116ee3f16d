package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRoute returns a route setup that serves gatherer at GET /metrics.
func MetricsRoute(gatherer prometheus.Gatherer) func(*gin.Engine) {
	handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(router *gin.Engine) {
		router.GET("/metrics", gin.WrapH(handler))
	}
}

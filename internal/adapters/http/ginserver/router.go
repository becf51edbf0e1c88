// Package ginserver is the exporter's status HTTP surface.
package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers the status routes. selfMetrics is exposed on /metrics;
// it must not be a cycle batch.
func NewRouter(h *Handler, selfMetrics prometheus.Gatherer, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/", h.Index)
	r.GET("/ping", h.Ping)
	r.GET("/status", h.Status)
	r.GET("/history", h.History)
	r.GET("/videos/:bvid/history", h.VideoHistory)
	if selfMetrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(selfMetrics, promhttp.HandlerOpts{})))
	}

	return r
}

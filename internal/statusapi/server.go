// Package statusapi serves the watchdog's status over HTTP.
package statusapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/amartya2002/connectivity-watchdog/watchdog"
)

// StatusSource is implemented by *watchdog.Watchdog.
type StatusSource interface {
	Snapshot() watchdog.Status
	Uptime() time.Duration
}

type StatusResponse struct {
	watchdog.Status
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// NewRouter builds the gin engine. gatherer may be nil to omit /metrics.
func NewRouter(src StatusSource, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Health check for API
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, StatusResponse{
			Status:        src.Snapshot(),
			UptimeSeconds: int64(src.Uptime().Seconds()),
		})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// Serve runs the router on addr in the background. Listen errors are
// logged; the watchdog keeps running without its status API.
func Serve(addr string, router *gin.Engine, logger *zap.Logger) {
	go func() {
		logger.Info("status API listening", zap.String("addr", addr))
		if err := router.Run(addr); err != nil {
			logger.Error("status API stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/presentation"
)

// RequestLoggingMiddleware logs one line per request
func RequestLoggingMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":  method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("Request handled")
	}
}

func NewRouter(provider Provider, logger logrus.FieldLogger, opts presentation.Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(provider, logger, opts)
	r.GET("/", h.Dashboard)
	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	{
		api.GET("/forecast", h.GetForecast)
		api.POST("/forecast/refresh", h.RefreshForecast)
	}
	return r
}

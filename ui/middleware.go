package ui

import (
	"net/http"
	"strconv"
	"time"

	"excelinsights/internal/errors"
	"excelinsights/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(recovery(s.logger), requestLogger(s.logger))
}

// requestLogger logs every request and records its duration.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		err := errors.InternalError("internal server error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Message, "code": err.Code})
	})
}

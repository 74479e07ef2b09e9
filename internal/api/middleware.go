package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"subscription-report-service/internal/kafka"
	"subscription-report-service/internal/logging"
)

const correlationKey = "correlation_id"

// CorrelationMiddleware accepts the caller's correlation id or generates one,
// stores it in the request context, and echoes it on the response. The id is
// passed explicitly downstream, never through ambient state.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(kafka.CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Set(correlationKey, correlationID)
		c.Header(kafka.CorrelationIDHeader, correlationID)
		c.Next()
	}
}

// CorrelationID returns the request's correlation id set by the middleware.
func CorrelationID(c *gin.Context) string {
	return c.GetString(correlationKey)
}

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.WithCorrelation(CorrelationID(c)).
			Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fieldwork/internal/pkg/response"
)

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger writes one structured line per request and logs errors attached
// with c.Error.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", redactedQuery(c)),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
			zap.Int64("user_id", c.GetInt64("user_id")),
			zap.String("role", c.GetString("role")),
		}
		for _, e := range c.Errors {
			fields = append(fields, zap.NamedError("error", e.Err))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("client error", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// Recovery turns a panic into a 500 envelope and logs the stack.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic",
					zap.String("error", fmt.Sprintf("%v", recovered)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString("request_id")),
					zap.ByteString("stack", debug.Stack()),
				)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error")
			}
		}()

		c.Next()
	}
}

// redactedQuery hides the websocket token from the access log.
func redactedQuery(c *gin.Context) string {
	q := c.Request.URL.Query()
	if q.Get("token") == "" {
		return c.Request.URL.RawQuery
	}
	q.Set("token", "REDACTED")
	return q.Encode()
}

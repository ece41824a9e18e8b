package middleware

import (
	"net/http"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"
	"download-gate/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the id that ties a request to its log lines
const RequestIDHeader = "X-Request-ID"

// ContextRequestID is the gin context key of the request id
const ContextRequestID = "request_id"

type MiddlewareProvider interface {
	RequestID() gin.HandlerFunc
	RequestLogger() gin.HandlerFunc
	RateLimit() gin.HandlerFunc
}

type middleware struct {
	limiter *ratelimit.KeyedLimiter
}

// NewMiddleware creates the shared middlewares.
// A zero requests-per-minute setting disables rate limiting.
func NewMiddleware(cfg *config.RateLimitConfig) MiddlewareProvider {
	m := &middleware{}
	if cfg.RequestsPerMinute > 0 {
		m.limiter = ratelimit.NewKeyedLimiter(cfg.RequestsPerMinute, cfg.Burst)
	}
	return m
}

// RequestID reuses an incoming X-Request-ID or assigns a new one
func (m *middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}

		c.Set(ContextRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
// The path is logged without its query string so signed URL parameters stay out of the logs.
func (m *middleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(map[string]interface{}{
			"request_id": c.GetString(ContextRequestID),
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}, "request handled")
	}
}

// RateLimit throttles requests per client IP
func (m *middleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.limiter == nil {
			c.Next()
			return
		}

		if !m.limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"download-gate/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newRouter(m MiddlewareProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(m.RequestID(), m.RequestLogger())
	router.GET("/dl/:token", m.RateLimit(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})
	return router
}

func TestRequestID(t *testing.T) {
	router := newRouter(NewMiddleware(&config.RateLimitConfig{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dl/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/dl/x", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	router := newRouter(NewMiddleware(&config.RateLimitConfig{RequestsPerMinute: 1, Burst: 2}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/dl/x", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/dl/x", nil)
	req.RemoteAddr = "198.51.100.4:5555"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	router := newRouter(NewMiddleware(&config.RateLimitConfig{}))

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dl/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

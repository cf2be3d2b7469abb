package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(l *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func get(router *gin.Engine) int {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterEnforcesBurst(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	defer l.Stop()
	router := limitedRouter(l)

	assert.Equal(t, http.StatusOK, get(router))
	assert.Equal(t, http.StatusTooManyRequests, get(router))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	defer l.Stop()

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")

	l.mu.Lock()
	tracked := len(l.clients)
	l.mu.Unlock()
	assert.Equal(t, 2, tracked)

	// From the eviction loop's perspective, far in the future both
	// clients are idle.
	l.evictIdle(time.Now().Add(clientIdleExpiry + time.Minute))

	l.mu.Lock()
	tracked = len(l.clients)
	l.mu.Unlock()
	assert.Equal(t, 0, tracked)
}

func TestRateLimiterStop(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	l.Stop()
	l.Stop() // stopping twice must not panic

	// Limiting still applies after Stop.
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
}

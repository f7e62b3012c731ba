package mw

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResponseCache(t *testing.T) {
	var hits atomic.Int32
	rc := NewResponseCache(time.Minute)

	r := gin.New()
	r.GET("/stats", rc.Middleware(), func(c *gin.Context) {
		hits.Add(1)
		c.JSON(http.StatusOK, gin.H{"n": hits.Load()})
	})

	first := serve(r, http.MethodGet, "/stats", nil)
	second := serve(r, http.MethodGet, "/stats", nil)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, rc.Len())

	rc.Flush()
	assert.Equal(t, 0, rc.Len())
	serve(r, http.MethodGet, "/stats", nil)
	assert.Equal(t, int32(2), hits.Load())
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	r := gin.New()
	r.GET("/fail", rc.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})

	serve(r, http.MethodGet, "/fail", nil)
	assert.Equal(t, 0, rc.Len())
}

func TestClientRateLimiter(t *testing.T) {
	limiter := NewClientRateLimiter(rate.Limit(1), 2, time.Minute)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", nil).Code)
	blocked := serve(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "1", blocked.Header().Get("Retry-After"))

	assert.Same(t, limiter.Limiter("10.0.0.1"), limiter.Limiter("10.0.0.1"))
}

func TestClientRateLimiter_EvictsIdleClients(t *testing.T) {
	limiter := NewClientRateLimiter(rate.Limit(1), 1, 50*time.Millisecond)

	first := limiter.Limiter("10.0.0.2")
	require.False(t, first.Allow() && first.Allow(), "burst of one")

	time.Sleep(120 * time.Millisecond)

	fresh := limiter.Limiter("10.0.0.2")
	assert.NotSame(t, first, fresh, "an idle bucket is dropped")
	assert.True(t, fresh.Allow())
}

func TestAccessKey(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		header   string
		expected int
	}{
		{name: "Disabled", key: "", header: "", expected: http.StatusOK},
		{name: "Matching key", key: "s3cret", header: "s3cret", expected: http.StatusOK},
		{name: "Missing key", key: "s3cret", header: "", expected: http.StatusUnauthorized},
		{name: "Wrong key", key: "s3cret", header: "guess", expected: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AccessKey(tc.key))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := serve(r, http.MethodGet, "/", map[string]string{AccessKeyHeader: tc.header})
			assert.Equal(t, tc.expected, w.Code)
		})
	}
}

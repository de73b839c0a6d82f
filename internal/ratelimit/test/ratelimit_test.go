package ratelimit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/binhbb2204/litverse/internal/ratelimit"
	"github.com/binhbb2204/litverse/pkg/config"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := ratelimit.NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 2, time.Minute)
	require.NoError(t, err)

	assert.True(t, l.Allow("ip-1"))
	assert.True(t, l.Allow("ip-1"))
	assert.False(t, l.Allow("ip-1"))
	assert.True(t, l.Allow("ip-2"), "keys are counted separately")
}

func TestFixedWindowLimiterRedisFailClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := ratelimit.NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 5, time.Minute)
	require.NoError(t, err)
	mr.Close()
	assert.False(t, l.Allow("ip-1"))
}

func TestFixedWindowLimiterConstructorErrors(t *testing.T) {
	_, err := ratelimit.NewRedisFixedWindowLimiter("", "", "", 1, time.Second)
	assert.Error(t, err)
	_, err = ratelimit.NewRedisFixedWindowLimiter("localhost:6379", "", "", 0, time.Second)
	assert.Error(t, err)
	_, err = ratelimit.NewRedisFixedWindowLimiter("localhost:6379", "", "", 1, 0)
	assert.Error(t, err)
}

func TestLocalLimiter_BurstThenDeny(t *testing.T) {
	l := ratelimit.NewLocalLimiter(3, time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"), "request %d", i)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Len())
}

func TestLocalLimiter_ConcurrentCallersNeverExceedBurst(t *testing.T) {
	l := ratelimit.NewLocalLimiter(50, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestLocalLimiter_SweepDropsIdleBuckets(t *testing.T) {
	l := ratelimit.NewLocalLimiter(10, 20*time.Millisecond)
	l.Allow("a")
	time.Sleep(40 * time.Millisecond)
	l.Allow("b")
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestFromConfig_SelectsBackend(t *testing.T) {
	logger.Init(logger.ERROR, false, nil)
	rl := config.RateLimitConfig{Requests: 2, Window: time.Minute}

	local := ratelimit.FromConfig(context.Background(), config.RedisConfig{}, rl)
	assert.IsType(t, &ratelimit.LocalLimiter{}, local)

	mr := miniredis.RunT(t)
	remote := ratelimit.FromConfig(context.Background(), config.RedisConfig{Addr: mr.Addr()}, rl)
	assert.IsType(t, &ratelimit.FixedWindowLimiter{}, remote)

	addr := mr.Addr()
	mr.Close()
	unreachable := ratelimit.FromConfig(context.Background(), config.RedisConfig{Addr: addr}, rl)
	assert.IsType(t, &ratelimit.LocalLimiter{}, unreachable)
}

func TestMiddleware_RespondsWithEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Init(logger.ERROR, false, nil)
	metrics.Reset()

	r := gin.New()
	r.Use(ratelimit.Middleware(ratelimit.NewLocalLimiter(1, 15*time.Minute), 15*time.Minute))
	r.GET("/api/books", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "Too many requests")
	assert.Equal(t, "/api/books", body["path"])
	assert.Equal(t, int64(1), metrics.GetRateLimited())
}

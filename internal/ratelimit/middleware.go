package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/config"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/gin-gonic/gin"
)

const tooManyRequests = "Too many requests from this IP, please try again later."

// FromConfig returns the Redis limiter when an address is configured and
// reachable, otherwise the in-process one.
func FromConfig(ctx context.Context, redisCfg config.RedisConfig, cfg config.RateLimitConfig) Limiter {
	if redisCfg.Addr != "" {
		l, err := NewRedisFixedWindowLimiter(redisCfg.Addr, redisCfg.Password, "", cfg.Requests, cfg.Window)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = l.Ping(pingCtx)
			cancel()
			if err == nil {
				logger.Info("rate_limiter_selected", "backend", "redis", "addr", redisCfg.Addr)
				return l
			}
			_ = l.Close()
		}
		logger.Warn("rate_limiter_redis_unavailable", "addr", redisCfg.Addr, "error", err)
	}
	logger.Info("rate_limiter_selected", "backend", "local", "requests", cfg.Requests, "window", cfg.Window.String())
	return NewLocalLimiter(cfg.Requests, cfg.Window)
}

// Middleware rejects requests over quota, keyed by client IP.
func Middleware(l Limiter, window time.Duration) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		metrics.IncrementRateLimited()
		logger.Warn("rate_limited", "ip", c.ClientIP(), "path", c.Request.URL.Path)
		c.Header("Retry-After", retryAfter)
		apierr.Respond(c, apierr.New(apierr.KindRateLimited, tooManyRequests))
	}
}

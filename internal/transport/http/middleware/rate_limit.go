package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/port"
)

// IdentifierFunc extracts the identifier a rate limit is scoped to.
type IdentifierFunc func(*gin.Context) (string, bool)

// ClientIPIdentifier scopes limits to the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimitRule configures a sliding-window limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces sliding-window rules backed by a RateLimitStore.
// Store failures fail open: a broken Redis must not take logins down with it.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// Limit returns a middleware enforcing the rule. Attempts within the window
// beyond the limit receive 429 with a Retry-After hint derived from the oldest
// attempt still inside the window.
func (rl *RateLimiter) Limit(rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", rule.Name, identifier)
		now := rl.now()
		ctx := c.Request.Context()

		if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
			rl.failOpen(c, rule, err)
			return
		}

		count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
		if err != nil {
			rl.failOpen(c, rule, err)
			return
		}

		if count >= rule.Limit {
			reset := now.Add(rule.Window)
			if oldest, has, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err == nil && has {
				reset = oldest.Add(rule.Window)
			}

			retryAfter := int(math.Ceil(reset.Sub(now).Seconds()))
			if retryAfter < 0 {
				retryAfter = 0
			}

			rl.setHeaders(c, rule.Limit, 0, reset)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, newErrorResponse(c,
				fmt.Sprintf("too many requests, try again in %d seconds", retryAfter)))
			return
		}

		if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
			rl.failOpen(c, rule, err)
			return
		}

		rl.setHeaders(c, rule.Limit, rule.Limit-count-1, now.Add(rule.Window))
		c.Next()
	}
}

func (rl *RateLimiter) setHeaders(c *gin.Context, limit, remaining int, reset time.Time) {
	if remaining < 0 {
		remaining = 0
	}
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func (rl *RateLimiter) failOpen(c *gin.Context, rule RateLimitRule, err error) {
	rl.logger.Warn("rate limit check failed",
		zap.String("rule", rule.Name),
		zap.Error(err))
	c.Next()
}

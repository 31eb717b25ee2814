package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type memoryRateLimitStore struct {
	attempts map[string][]time.Time
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{attempts: make(map[string][]time.Time)}
}

func (s *memoryRateLimitStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	var kept []time.Time
	for _, at := range s.attempts[identifier] {
		if !at.Before(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	s.attempts[identifier] = kept
	return nil
}

func (s *memoryRateLimitStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	count := 0
	for _, at := range s.attempts[identifier] {
		if !at.Before(reference.Add(-window)) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (s *memoryRateLimitStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	s.attempts[identifier] = append(s.attempts[identifier], at)
	return nil
}

func (s *memoryRateLimitStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	var oldest time.Time
	found := false
	for _, at := range s.attempts[identifier] {
		if at.Before(reference.Add(-window)) || at.After(reference) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

func newLimitedRouter(t *testing.T, limiter *RateLimiter, rule RateLimitRule) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", limiter.Limit(rule), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func performLogin(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":51000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	store := newMemoryRateLimitStore()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))
	router := newLimitedRouter(t, limiter, RateLimitRule{
		Name:       "login",
		Limit:      5,
		Window:     15 * time.Minute,
		Identifier: ClientIPIdentifier(),
	})

	for i := 0; i < 5; i++ {
		if rec := performLogin(router, "198.51.100.7"); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := performLogin(router, "198.51.100.7")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// A different client IP is unaffected.
	if rec := performLogin(router, "203.0.113.9"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for different IP, got %d", rec.Code)
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	store := newMemoryRateLimitStore()
	current := time.Now()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return current })
	router := newLimitedRouter(t, limiter, RateLimitRule{
		Name:       "login",
		Limit:      2,
		Window:     15 * time.Minute,
		Identifier: ClientIPIdentifier(),
	})

	performLogin(router, "198.51.100.7")
	performLogin(router, "198.51.100.7")
	if rec := performLogin(router, "198.51.100.7"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	current = current.Add(16 * time.Minute)
	if rec := performLogin(router, "198.51.100.7"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after window slid, got %d", rec.Code)
	}
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	limiter := NewRateLimiter(failingStore{}, zaptest.NewLogger(t))
	router := newLimitedRouter(t, limiter, RateLimitRule{
		Name:       "login",
		Limit:      1,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	})

	for i := 0; i < 3; i++ {
		if rec := performLogin(router, "198.51.100.7"); rec.Code != http.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", rec.Code)
		}
	}
}

type failingStore struct{}

func (failingStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return context.DeadlineExceeded
}

func (failingStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return 0, context.DeadlineExceeded
}

func (failingStore) RecordAttempt(context.Context, string, time.Time) error {
	return context.DeadlineExceeded
}

func (failingStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, context.DeadlineExceeded
}

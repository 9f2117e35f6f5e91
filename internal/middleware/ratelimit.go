package middleware

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a chat user sends events too fast.
var ErrRateLimited = errors.New("too many requests, retry later")

// RateLimiterConfig holds the per-user rate limit.
type RateLimiterConfig struct {
	// PerMinute is the sustained number of requests per user and minute.
	PerMinute int

	// Burst is the number of requests a user may send at once.
	Burst int

	// CleanupInterval is how often idle limiters are dropped.
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns 60 requests per minute with a burst of 10.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		PerMinute:       60,
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
	}
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter limits requests per chat user.
type RateLimiter struct {
	config RateLimiterConfig
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[int64]*userLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a RateLimiter and starts dropping idle limiters in
// the background. Call Stop to end it.
func NewRateLimiter(config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	if config.PerMinute <= 0 {
		config.PerMinute = DefaultRateLimiterConfig().PerMinute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimiterConfig().CleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	rl := &RateLimiter{
		config:   config,
		logger:   logger,
		limiters: make(map[int64]*userLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow reports whether the user may send another request now.
func (rl *RateLimiter) Allow(userID int64) bool {
	return rl.limiter(userID).Allow()
}

// Count returns the number of tracked users.
func (rl *RateLimiter) Count() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiter(userID int64) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if ul, ok := rl.limiters[userID]; ok {
		ul.lastAccess = time.Now()
		return ul.limiter
	}
	every := rate.Limit(float64(rl.config.PerMinute) / 60)
	ul := &userLimiter{
		limiter:    rate.NewLimiter(every, rl.config.Burst),
		lastAccess: time.Now(),
	}
	rl.limiters[userID] = ul
	return ul.limiter
}

// Interceptor rejects user-scoped requests over the limit with
// CodeResourceExhausted. Requests that act for no user pass through.
func (rl *RateLimiter) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			userID := chatUserID(req)
			if userID != 0 && !rl.Allow(userID) {
				rl.logger.Warn("rate limit exceeded",
					"user_id", userID,
					"procedure", req.Spec().Procedure,
				)
				return nil, connect.NewError(connect.CodeResourceExhausted, ErrRateLimited)
			}
			return next(ctx, req)
		}
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops limiters idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for userID, ul := range rl.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(rl.limiters, userID)
		}
	}
}

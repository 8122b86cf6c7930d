package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"webappbot/internal/adapter/telegram"
)

// RateLimiter restricts request frequency per user. Updates over the limit
// are dropped without a reply.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*entry
	every    rate.Limit
	log      *slog.Logger
	now      func() time.Time
}

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter allows one update per interval for each user. A zero
// interval disables limiting.
func NewRateLimiter(interval time.Duration, log *slog.Logger) *RateLimiter {
	if log == nil {
		log = slog.Default()
	}
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	return &RateLimiter{limiters: make(map[int64]*entry), every: every, log: log, now: time.Now}
}

// Allow returns false if user hits the limit.
func (r *RateLimiter) Allow(userID int64) bool {
	if r.every == rate.Inf {
		return true
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.limiters[userID]
	if !ok {
		e = &entry{lim: rate.NewLimiter(r.every, 1)}
		r.limiters[userID] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// Prune forgets users idle for longer than idle.
func (r *RateLimiter) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.limiters {
		if e.seen.Before(cutoff) {
			delete(r.limiters, id)
			n++
		}
	}
	return n
}

// Middleware checks rate limit before calling next handler.
func (r *RateLimiter) Middleware(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
		if uid := telegram.UserID(upd); uid != 0 && !r.Allow(uid) {
			r.log.Debug("rate limited", slog.Int64("user_id", uid), slog.Int64("update_id", upd.ID))
			return
		}
		next(ctx, s, upd)
	}
}

package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/repository"
)

// InviteAttemptLimiter caps invite redemptions per subject in a fixed window.
type InviteAttemptLimiter interface {
	Allow(ctx context.Context, subject string) bool
}

type stateStoreLimiter struct {
	store  repository.StateStore
	window time.Duration
	max    int64
	prefix string
	logger *zap.Logger
}

// NewInviteAttemptLimiter returns nil (no limit) when max is not positive.
func NewInviteAttemptLimiter(store repository.StateStore, max int, window time.Duration, logger *zap.Logger) InviteAttemptLimiter {
	if store == nil || max <= 0 {
		return nil
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &stateStoreLimiter{
		store:  store,
		window: window,
		max:    int64(max),
		prefix: "invite:attempts:",
		logger: logger,
	}
}

// Allow fails open when the store is unreachable.
func (l *stateStoreLimiter) Allow(ctx context.Context, subject string) bool {
	key := strings.TrimSpace(subject)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	count, err := l.store.Incr(ctx, l.prefix+key, l.window)
	if err != nil {
		l.logger.Warn("invite limiter unavailable", zap.String("subject", key), zap.Error(err))
		return true
	}
	return count <= l.max
}

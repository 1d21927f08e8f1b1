package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// FixedWindow counts requests per subject in fixed Redis backed windows.
type FixedWindow struct {
	client    redis.UniversalClient
	limit     int64
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewFixedWindow builds a limiter allowing limit requests per window.
func NewFixedWindow(client redis.UniversalClient, limit int, window time.Duration, keyPrefix string) (*FixedWindow, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	keyPrefix = strings.TrimSpace(keyPrefix)
	if keyPrefix == "" {
		keyPrefix = "imaginify:ratelimit"
	}
	return &FixedWindow{
		client:    client,
		limit:     int64(limit),
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}, nil
}

// Allow records one request for subject and reports whether it fits the
// current window.
func (l *FixedWindow) Allow(ctx context.Context, subject string) (Decision, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "unknown"
	}
	windowMs := l.window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	nowMs := l.now().UTC().UnixMilli()
	slot := nowMs / windowMs
	key := fmt.Sprintf("%s:%s:%d", l.keyPrefix, subject, slot)

	count, err := fixedWindowScript.Run(ctx, l.client, []string{key}, windowMs).Int64()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{Allowed: count <= l.limit, Remaining: remaining}
	if !d.Allowed {
		d.RetryAfter = time.Duration((slot+1)*windowMs-nowMs) * time.Millisecond
	}
	return d, nil
}

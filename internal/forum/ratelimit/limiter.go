// Package ratelimit enforces a per-actor cooldown between reports of the same
// content item.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

// Decision is the outcome of one attempt. RetryAfter is the time left on the
// cooldown when the attempt was refused.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Store records the last allowed action per key. Acquire must be atomic: it
// writes now and allows only when the key is absent or its timestamp is at
// least window old. A refusal leaves the stored timestamp untouched.
type Store interface {
	Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (Decision, error)
}

func DefaultWindows() map[model.Kind]time.Duration {
	return map[model.Kind]time.Duration{
		model.KindResource: 24 * time.Hour,
		model.KindQuestion: 2 * time.Hour,
		model.KindReply:    2 * time.Hour,
	}
}

type Limiter struct {
	store   Store
	windows map[model.Kind]time.Duration
	now     func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, windows map[model.Kind]time.Duration, opts ...Option) *Limiter {
	if windows == nil {
		windows = DefaultWindows()
	}
	l := &Limiter{store: store, windows: windows, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func Key(actorID string, kind model.Kind, contentID int64) string {
	return "throttle:report:" + string(kind) + ":" + actorID + ":" + strconv.FormatInt(contentID, 10)
}

// Allow reports whether actorID may report the item now and, if so, starts a
// new cooldown. An actor that cannot be identified is always allowed.
func (l *Limiter) Allow(ctx context.Context, actorID string, kind model.Kind, contentID int64) (Decision, error) {
	if actorID == "" || contentID <= 0 {
		return Decision{Allowed: true}, nil
	}
	window, ok := l.windows[kind]
	if !ok {
		return Decision{}, fmt.Errorf("no cooldown configured for %q", kind)
	}
	return l.store.Acquire(ctx, Key(actorID, kind, contentID), l.now(), window)
}

// Window returns the cooldown for kind.
func (l *Limiter) Window(kind model.Kind) time.Duration {
	return l.windows[kind]
}

package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	minuteWindow = time.Minute
	tenSecWindow = 10 * time.Second
)

type Action string

const (
	ActionUpload  Action = "upload"
	ActionMessage Action = "message"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Rule caps an action per user; zero disables a window.
type Rule struct {
	PerMinute int
	Per10Sec  int
}

type Limiter struct {
	store WindowStore
	rules map[Action]Rule
}

func NewLimiter(store WindowStore, rules map[Action]Rule) *Limiter {
	normalized := make(map[Action]Rule, len(rules))
	for action, rule := range rules {
		normalized[action] = Rule{
			PerMinute: max(rule.PerMinute, 0),
			Per10Sec:  max(rule.Per10Sec, 0),
		}
	}
	return &Limiter{store: store, rules: normalized}
}

// Allow counts one action and reports the seconds to wait when a window is full.
func (l *Limiter) Allow(ctx context.Context, action Action, userID int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	rule, ok := l.rules[action]
	if !ok {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	var retryAfterSec int64
	for _, w := range rule.windows() {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(action, w.label, userID), w.window)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.limit) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// RetryAfter reads the window state without counting.
func (l *Limiter) RetryAfter(ctx context.Context, action Action, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	rule, ok := l.rules[action]
	if !ok {
		return 0, nil
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	var retryAfterSec int64
	for _, w := range rule.windows() {
		count, ttl, err := l.store.WindowState(ctx, windowKey(action, w.label, userID))
		if err != nil {
			return 0, err
		}
		if count >= int64(w.limit) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}
	return retryAfterSec, nil
}

type window struct {
	label  string
	window time.Duration
	limit  int
}

func (r Rule) windows() []window {
	out := make([]window, 0, 2)
	if r.PerMinute > 0 {
		out = append(out, window{label: "min", window: minuteWindow, limit: r.PerMinute})
	}
	if r.Per10Sec > 0 {
		out = append(out, window{label: "10s", window: tenSecWindow, limit: r.Per10Sec})
	}
	return out
}

func windowKey(action Action, label string, userID int64) string {
	return "mp:rate:" + string(action) + ":" + label + ":" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return max(sec, 1)
}

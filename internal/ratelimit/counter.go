// Package ratelimit enforces per-client request quotas over fixed windows.
//
// Windows are aligned to UTC: a window of length w starts at now.Truncate(w),
// so a one minute quota resets on every UTC minute, an hourly quota at the top
// of the hour and a daily quota at UTC midnight. Every call counts, including
// rejected ones, so a client over its limit waits for the next window.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Quota is a request limit over a window.
type Quota struct {
	Limit  int
	Window time.Duration
}

// Unlimited reports whether the quota never rejects.
func (q Quota) Unlimited() bool {
	return q.Limit <= 0 || q.Window <= 0
}

// Counter atomically increments the count for (client, endpoint) in the
// current window of quota and reports whether the post-increment count is
// still within the limit.
type Counter interface {
	CheckAndConsume(ctx context.Context, client, endpoint string, quota Quota) (bool, error)
}

func windowStart(now time.Time, window time.Duration) time.Time {
	return now.UTC().Truncate(window)
}

func windowKey(client, endpoint string, window time.Duration, start time.Time) string {
	return fmt.Sprintf("rl:%s:%d:%d:%s", endpoint, window.Milliseconds(), start.Unix(), client)
}

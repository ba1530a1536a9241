package ratelimit

import (
	"sync"
	"time"

	"github.com/newspilot/newspilot/internal/models"
	"github.com/sirupsen/logrus"
)

// PlatformStats is the externally visible rate limit state for one platform.
type PlatformStats struct {
	PostsToday    int  `json:"posts_today"`
	PostsLastHour int  `json:"posts_last_hour"`
	CanPost       bool `json:"can_post"`
	HourlyLimit   int  `json:"hourly_limit"`
	DailyLimit    int  `json:"daily_limit"`
}

// Gate enforces per-platform posting caps over rolling hourly and daily
// windows. History lives in memory only; a restart forgets it and the
// platforms' own limits backstop that.
//
// Platforms without a configured limit fail closed.
type Gate struct {
	windows map[string]*window

	nowFn func() time.Time
}

type window struct {
	mu    sync.Mutex
	limit models.RateLimit
	posts []time.Time
}

// NewGate creates a gate for the given per-platform limits.
func NewGate(limits map[string]models.RateLimit) *Gate {
	windows := make(map[string]*window, len(limits))
	for platform, limit := range limits {
		windows[platform] = &window{limit: limit}
	}
	return &Gate{windows: windows, nowFn: time.Now}
}

// CanPost reports whether a post to the platform would be admitted right
// now. It is advisory only; callers that go on to post must use Reserve.
func (g *Gate) CanPost(platform string) bool {
	w, ok := g.windows[platform]
	if !ok {
		return false
	}

	now := g.nowFn()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	hour, day := w.counts(now)
	return hour < w.limit.PostsPerHour && day < w.limit.PostsPerDay
}

// Reserve atomically claims one posting slot. The returned timestamp is the
// token to hand back through Release if the post then fails, so the slot is
// not burned on a send error. The window lock is never held across the
// network call this protects.
func (g *Gate) Reserve(platform string) (time.Time, bool) {
	w, ok := g.windows[platform]
	if !ok {
		return time.Time{}, false
	}

	now := g.nowFn()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	hour, day := w.counts(now)
	if hour >= w.limit.PostsPerHour || day >= w.limit.PostsPerDay {
		logrus.Debugf("Rate limit reached for %s: %d posts in the last hour, %d today", platform, hour, day)
		return time.Time{}, false
	}

	w.posts = append(w.posts, now)
	return now, true
}

// Release returns a slot claimed by Reserve, identified by its timestamp.
// Releasing an unknown slot is a no-op.
func (g *Gate) Release(platform string, at time.Time) {
	w, ok := g.windows[platform]
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.posts) - 1; i >= 0; i-- {
		if w.posts[i].Equal(at) {
			w.posts = append(w.posts[:i], w.posts[i+1:]...)
			return
		}
	}
}

// RecordPost registers a post made outside the Reserve flow. It does not
// check the caps, it only consumes capacity.
func (g *Gate) RecordPost(platform string) {
	w, ok := g.windows[platform]
	if !ok {
		return
	}

	now := g.nowFn()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	w.posts = append(w.posts, now)
}

// Stats reports the current window state for every configured platform.
func (g *Gate) Stats() map[string]PlatformStats {
	now := g.nowFn()
	stats := make(map[string]PlatformStats, len(g.windows))
	for platform, w := range g.windows {
		w.mu.Lock()
		w.prune(now)
		hour, day := w.counts(now)
		limit := w.limit
		w.mu.Unlock()

		stats[platform] = PlatformStats{
			PostsToday:    day,
			PostsLastHour: hour,
			CanPost:       hour < limit.PostsPerHour && day < limit.PostsPerDay,
			HourlyLimit:   limit.PostsPerHour,
			DailyLimit:    limit.PostsPerDay,
		}
	}
	return stats
}

// prune drops history older than the daily window. Callers hold the lock.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	kept := w.posts[:0]
	for _, t := range w.posts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.posts = kept
}

// counts returns how many retained posts fall in the hourly window and in
// the daily window. Callers hold the lock.
func (w *window) counts(now time.Time) (hour, day int) {
	hourCutoff := now.Add(-time.Hour)
	for _, t := range w.posts {
		if t.After(hourCutoff) {
			hour++
		}
	}
	return hour, len(w.posts)
}

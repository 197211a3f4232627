// Package pending tracks the one-step conversational continuation per user:
// a marker saying the user's next message answers a follow-up question the
// bot just asked (currently only "which city?" for weather).
package pending

import (
	"sync"
	"time"
)

// TagAwaitingCity marks a user whose next message is interpreted as a city
// name for the weather flow.
const TagAwaitingCity = "weather_location"

// DefaultTTL is how long a continuation stays live before it is treated as
// abandoned. Without a bound, a user who asks about the weather and walks
// away would have every later message swallowed as a city name.
const DefaultTTL = 10 * time.Minute

type entry struct {
	tag   string
	setAt time.Time
}

// Tracker is a TTL-bounded map from user identifier to continuation tag.
// It is safe for concurrent use. At most one continuation exists per user.
type Tracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

// NewTracker creates a Tracker. Pass ttl <= 0 to use DefaultTTL.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Set records a continuation for userID, unconditionally overwriting any
// existing one.
func (t *Tracker) Set(userID, tag string) {
	t.setAt(userID, tag, time.Now())
}

// setAt is the time-injectable core of Set (for testing).
func (t *Tracker) setAt(userID, tag string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[userID] = entry{tag: tag, setAt: now}
}

// Consume atomically reads and removes the continuation for userID.
// Expired entries are removed and reported as absent. The read-and-remove is
// a single critical section so a continuation is consumed at most once even
// under concurrent requests for the same user.
func (t *Tracker) Consume(userID string) (string, bool) {
	return t.consumeAt(userID, time.Now())
}

// consumeAt is the time-injectable core of Consume (for testing).
func (t *Tracker) consumeAt(userID string, now time.Time) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		return "", false
	}
	delete(t.entries, userID)

	if now.Sub(e.setAt) > t.ttl {
		return "", false
	}
	return e.tag, true
}

// Peek returns the continuation for userID without consuming it. Expired
// entries are reported as absent (and lazily removed).
func (t *Tracker) Peek(userID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		return "", false
	}
	if time.Since(e.setAt) > t.ttl {
		delete(t.entries, userID)
		return "", false
	}
	return e.tag, true
}

// Clear removes the continuation for userID; no-op when absent.
func (t *Tracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, userID)
}

// Len returns the number of live (possibly expired but not yet collected)
// entries. Intended for the /status endpoint.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

package admission

import (
	"container/list"
	"sync"
	"time"
)

// Default policy values.
const (
	DefaultMaxPerWindow = 10
	DefaultWindow       = 60 * time.Second
)

// Policy configures the per-user fixed window.
type Policy struct {
	// MaxPerWindow is the number of commands admitted per window.
	MaxPerWindow int
	// Window is the window duration.
	Window time.Duration
}

// Eviction bounds the number of retained user records.
type Eviction struct {
	// MaxEntries caps retained records, least recently used first. Zero keeps every record.
	MaxEntries int
	// IdleTTL drops records not touched for this long. It is never shorter than the window.
	IdleTTL time.Duration
}

// Decision is the result of an admission check.
type Decision struct {
	// Admitted reports whether the command may proceed.
	Admitted bool
	// RetryAfter is the time until the window resets when rejected.
	RetryAfter time.Duration
	// Remaining is the quota left in the current window after this decision.
	Remaining int
}

// Status is a read-only view of a user's quota.
type Status struct {
	// Limit is the configured maximum per window.
	Limit int
	// Remaining is the number of commands still admissible.
	Remaining int
	// ResetIn is the time until the current window ends, zero when no window is active.
	ResetIn time.Duration
}

type record struct {
	mu          sync.Mutex
	userID      string
	count       int
	windowStart time.Time

	// lastSeen is guarded by Controller.mu.
	lastSeen time.Time
}

// Controller keeps per-user fixed-window counters.
//
// The table lock guards lookups, inserts and LRU order only. Each record has
// its own lock so concurrent commands of one user are serialized while
// different users never wait on each other's counters.
type Controller struct {
	mu       sync.Mutex
	records  map[string]*list.Element
	order    *list.List
	policy   Policy
	eviction Eviction
}

// NewController creates a controller, filling zero policy values with defaults.
func NewController(policy Policy, eviction Eviction) *Controller {
	if policy.MaxPerWindow <= 0 {
		policy.MaxPerWindow = DefaultMaxPerWindow
	}
	if policy.Window <= 0 {
		policy.Window = DefaultWindow
	}
	if eviction.MaxEntries < 0 {
		eviction.MaxEntries = 0
	}
	if eviction.IdleTTL <= 0 {
		eviction.IdleTTL = 2 * policy.Window
	}
	if eviction.IdleTTL < policy.Window {
		eviction.IdleTTL = policy.Window
	}
	return &Controller{
		records:  make(map[string]*list.Element),
		order:    list.New(),
		policy:   policy,
		eviction: eviction,
	}
}

// Policy returns the effective policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// TryAdmit records a command attempt for userID at now and decides whether it may proceed.
func (c *Controller) TryAdmit(userID string, now time.Time) Decision {
	rec := c.acquire(userID, now)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	elapsed := rec.elapsed(now)
	if rec.windowStart.IsZero() || elapsed >= c.policy.Window {
		rec.windowStart = now
		rec.count = 1
		return Decision{Admitted: true, Remaining: c.policy.MaxPerWindow - 1}
	}
	if rec.count < c.policy.MaxPerWindow {
		rec.count++
		return Decision{Admitted: true, Remaining: c.policy.MaxPerWindow - rec.count}
	}
	return Decision{Admitted: false, RetryAfter: c.policy.Window - elapsed}
}

// Status reports the quota of userID at now without changing any state.
func (c *Controller) Status(userID string, now time.Time) Status {
	full := Status{Limit: c.policy.MaxPerWindow, Remaining: c.policy.MaxPerWindow}

	c.mu.Lock()
	elem, ok := c.records[userID]
	c.mu.Unlock()
	if !ok {
		return full
	}

	rec := elem.Value.(*record)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	elapsed := rec.elapsed(now)
	if rec.windowStart.IsZero() || elapsed >= c.policy.Window {
		return full
	}
	remaining := c.policy.MaxPerWindow - rec.count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Limit:     c.policy.MaxPerWindow,
		Remaining: remaining,
		ResetIn:   c.policy.Window - elapsed,
	}
}

// Reset drops the record of userID, restoring full capacity.
func (c *Controller) Reset(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.records[userID]; ok {
		c.remove(elem)
	}
}

// Len returns the number of retained records.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func (c *Controller) acquire(userID string, now time.Time) *record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.records[userID]; ok {
		rec := elem.Value.(*record)
		if !c.idle(rec, now) {
			if now.After(rec.lastSeen) {
				rec.lastSeen = now
			}
			c.order.MoveToFront(elem)
			return rec
		}
		c.remove(elem)
	}

	rec := &record{userID: userID, lastSeen: now}
	c.records[userID] = c.order.PushFront(rec)
	c.trim(now)
	return rec
}

// trim drops idle records from the LRU tail, then enforces MaxEntries.
// The front element (the record just inserted) is never removed.
func (c *Controller) trim(now time.Time) {
	for {
		elem := c.order.Back()
		if elem == nil || elem == c.order.Front() {
			break
		}
		if !c.idle(elem.Value.(*record), now) {
			break
		}
		c.remove(elem)
	}
	if c.eviction.MaxEntries <= 0 {
		return
	}
	for len(c.records) > c.eviction.MaxEntries {
		elem := c.order.Back()
		if elem == nil || elem == c.order.Front() {
			return
		}
		c.remove(elem)
	}
}

func (c *Controller) idle(rec *record, now time.Time) bool {
	return now.Sub(rec.lastSeen) >= c.eviction.IdleTTL
}

func (c *Controller) remove(elem *list.Element) {
	rec := elem.Value.(*record)
	delete(c.records, rec.userID)
	c.order.Remove(elem)
}

// elapsed is the time since the window started, never negative.
func (r *record) elapsed(now time.Time) time.Duration {
	if r.windowStart.IsZero() {
		return 0
	}
	d := now.Sub(r.windowStart)
	if d < 0 {
		return 0
	}
	return d
}

package team

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Signature derives a cache key from a task's shape: its sorted
// requirement texts plus the description length. Two tasks with the same
// signature are considered similar enough to reuse a team.
func Signature(description string, requirements []string) string {
	sorted := make([]string, len(requirements))
	for i, r := range requirements {
		sorted[i] = strings.ToLower(strings.TrimSpace(r))
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "|") + "#" + strconv.Itoa(len(description))
}

type cacheEntry struct {
	teamID   string
	storedAt time.Time
	hits     int
}

// Cache maps task signatures to reusable team ids with a TTL. Entries
// are evicted lazily on lookup.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*cacheEntry
}

// NewCache creates a cache. A zero ttl means entries never expire.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]*cacheEntry)}
}

// Get returns the team id stored under sig, if present and fresh.
func (c *Cache) Get(sig string, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[sig]
	if !ok {
		return "", false
	}
	if c.ttl > 0 && now.Sub(entry.storedAt) > c.ttl {
		delete(c.entries, sig)
		return "", false
	}
	entry.hits++
	return entry.teamID, true
}

// Put stores a team id under sig, replacing any previous entry.
func (c *Cache) Put(sig, teamID string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sig] = &cacheEntry{teamID: teamID, storedAt: now}
}

// Invalidate drops every entry pointing at teamID. Called when a team
// dissolves so the cache never hands out a dead team.
func (c *Cache) Invalidate(teamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sig, entry := range c.entries {
		if entry.teamID == teamID {
			delete(c.entries, sig)
		}
	}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Hits returns the total hit count across entries.
func (c *Cache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, entry := range c.entries {
		total += entry.hits
	}
	return total
}

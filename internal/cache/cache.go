// Package cache implements the content-addressed response cache: keys are
// derived deterministically from the query and the stable parts of the user
// context, entries expire by TTL, and the store is capacity-bounded with
// oldest-by-insertion eviction.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/askfolio/askfolio/internal/config"
	"github.com/askfolio/askfolio/internal/domain"
	"go.uber.org/zap"
)

// Stats is an aggregate cache report, reconstructed from counters rather
// than by scanning entries.
type Stats struct {
	Entries        int     `json:"entries"`
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

type entry struct {
	key       string
	value     domain.Answer
	createdAt time.Time
	expiresAt time.Time
}

// Cache is a mutex-guarded in-memory response cache. All operations are
// short and never hold the lock across external calls.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // oldest insertion at front
	max     int

	hits   uint64
	misses uint64

	logger *zap.Logger
	stop   chan struct{}
	once   sync.Once
}

// New creates a response cache and, when a cleanup interval is configured,
// starts a background janitor that prunes expired entries. Close stops it.
func New(cfg config.CacheConfig, logger *zap.Logger) *Cache {
	c := &Cache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		max:     cfg.MaxEntries,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go c.janitor(cfg.CleanupInterval)
	}
	return c
}

// Key derives a deterministic cache key from the normalized query text, the
// context fields that affect generation content (role, page and the active
// retrieval scope, not volatile fields), and the answer language. Identical
// inputs always produce the identical key across calls and process runs.
// The scope is included because scoped retrieval changes which documents
// back the answer: without it, one project's cached answer would be served
// to a user scoped to another.
func Key(query string, uc domain.UserContext, language string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	scopeKind, scopeID := uc.Scope()
	h := sha256.New()
	for _, part := range []string{
		normalized,
		strings.ToLower(uc.Role),
		strings.ToLower(uc.CurrentPage),
		strings.ToLower(scopeKind),
		strings.ToLower(scopeID),
		strings.ToLower(language),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached answer for key. Absent covers both "never set" and
// "expired"; expired entries are evicted lazily on access. The returned
// answer is a value copy so callers cannot corrupt the cached entry.
func (c *Cache) Get(key string) (domain.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return domain.Answer{}, false
	}
	e := el.Value.(*entry)
	if !time.Now().Before(e.expiresAt) {
		c.remove(el)
		c.misses++
		return domain.Answer{}, false
	}
	c.hits++
	return copyAnswer(e.value), true
}

// Set stores value under key with the given TTL. When the cache is full the
// oldest-by-insertion entry is evicted first, so the total size never
// exceeds the configured maximum.
func (c *Cache) Set(key string, value domain.Answer, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	for len(c.entries) >= c.max {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.logger.Debug("evicting cache entry", zap.String("key", oldest.Value.(*entry).key))
		c.remove(oldest)
	}

	e := &entry{
		key:       key,
		value:     copyAnswer(value),
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	c.entries[key] = c.order.PushBack(e)
}

// Stats returns the aggregate counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRatePercent = float64(c.hits) / float64(total) * 100
	}
	return s
}

// Close stops the background janitor.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.pruneExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) pruneExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	removed := 0
	for el := c.order.Front(); el != nil; el = next {
		next = el.Next()
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.remove(el)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("pruned expired cache entries", zap.Int("removed", removed))
	}
}

// remove must be called with the lock held.
func (c *Cache) remove(el *list.Element) {
	delete(c.entries, el.Value.(*entry).key)
	c.order.Remove(el)
}

func copyAnswer(a domain.Answer) domain.Answer {
	out := a
	out.Citations = append([]domain.Citation(nil), a.Citations...)
	out.Sources = append([]domain.Source(nil), a.Sources...)
	return out
}

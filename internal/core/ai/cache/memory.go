package cache

import (
	"context"
	"sync"
	"time"

	"recipe-ingest/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager is an in-process Store with TTL expiry and least-recently-used eviction.
// Expired entries are dropped on access and when the store is full.
type Manager struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	store   map[string]cacheEntry
	stats   Stats
	now     func() time.Time
}

type cacheEntry struct {
	value       string
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Stats counts cache activity.
type Stats struct {
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// NewManager creates a memory store holding at most maxSize entries for ttl each.
func NewManager(maxSize int, ttl time.Duration) *Manager {
	if maxSize <= 0 {
		maxSize = 1
	}
	m := &Manager{
		maxSize: maxSize,
		ttl:     ttl,
		store:   make(map[string]cacheEntry),
		now:     time.Now,
	}

	common.LogInfo("Cache manager initialized",
		zap.Int("max_size", maxSize),
		zap.Duration("ttl", ttl),
	)
	return m
}

// Get returns the value stored under key.
func (m *Manager) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.store[key]
	if !ok {
		m.stats.Misses++
		return "", common.ErrCacheMiss
	}

	now := m.now()
	if m.ttl > 0 && now.After(entry.expiresAt) {
		delete(m.store, key)
		m.stats.Evictions++
		m.stats.Misses++
		return "", common.ErrCacheMiss
	}

	entry.lastAccess = now
	entry.accessCount++
	m.store[key] = entry
	m.stats.Hits++
	return entry.value, nil
}

// Set stores value under key, evicting expired and then least recently used entries when full.
func (m *Manager) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		if evicted := m.cleanup(); evicted > 0 {
			common.LogDebug("Cleaned up expired cache entries", zap.Int("count", evicted))
		}
		for len(m.store) >= m.maxSize {
			m.evictLRU()
		}
	}

	now := m.now()
	m.store[key] = cacheEntry{
		value:      value,
		expiresAt:  now.Add(m.ttl),
		lastAccess: now,
	}
	return nil
}

func (m *Manager) cleanup() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	count := 0
	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.Evictions++
		}
	}
	return count
}

func (m *Manager) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time

	for key, entry := range m.store {
		if oldestKey == "" || entry.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = entry.lastAccess
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.Evictions++
		common.LogDebug("Cache entry evicted (LRU)", zap.String("key", oldestKey))
	}
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.store)
	s.MaxSize = m.maxSize
	return s
}

// Close empties the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]cacheEntry)
	common.LogInfo("Cache manager closed",
		zap.Int64("hits", m.stats.Hits),
		zap.Int64("misses", m.stats.Misses),
		zap.Int64("evictions", m.stats.Evictions),
	)
	return nil
}

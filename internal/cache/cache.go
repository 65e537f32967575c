// Package cache implements the result cache sitting in front of the
// Analysis Orchestrator (C8): an in-memory, mutex-guarded, per-key TTL
// store by default, with an optional Redis-backed distributed variant for
// multi-instance deployments. Grounded on the reference service's
// analyzer/threat_analyzer.go AnalysisCache (store/ttl maps guarded by a
// single RWMutex), generalized to a pluggable Store interface so a
// Redis-backed implementation can share the same contract.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cyberzilla/urlsentinel/internal/models"
)

// Store is the contract the orchestrator depends on. Get reports whether
// the entry was present and unexpired; Set stores it with the store's
// configured TTL.
type Store interface {
	Get(ctx context.Context, key string) (models.ScanResult, bool)
	Set(ctx context.Context, key string, result models.ScanResult)
}

// MemoryStore is an in-process LRU-with-TTL cache, the default backend.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxSize  int
	entries  map[string]*list.Element
	order    *list.List
}

type memoryEntry struct {
	key       string
	value     models.ScanResult
	expiresAt time.Time
}

// NewMemoryStore builds a store holding at most maxSize entries, each
// valid for ttl after insertion. maxSize <= 0 disables eviction by size.
func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached result for key if present and not expired.
func (m *MemoryStore) Get(ctx context.Context, key string) (models.ScanResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return models.ScanResult{}, false
	}
	entry := el.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.order.Remove(el)
		delete(m.entries, key)
		return models.ScanResult{}, false
	}
	m.order.MoveToFront(el)
	return entry.value, true
}

// Set stores result under key, evicting the least-recently-used entry if
// the store is at capacity.
func (m *MemoryStore) Set(ctx context.Context, key string, result models.ScanResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		el.Value.(*memoryEntry).value = result
		el.Value.(*memoryEntry).expiresAt = time.Now().Add(m.ttl)
		m.order.MoveToFront(el)
		return
	}

	entry := &memoryEntry{key: key, value: result, expiresAt: time.Now().Add(m.ttl)}
	el := m.order.PushFront(entry)
	m.entries[key] = el

	if m.maxSize > 0 && m.order.Len() > m.maxSize {
		oldest := m.order.Back()
		if oldest != nil {
			m.order.Remove(oldest)
			delete(m.entries, oldest.Value.(*memoryEntry).key)
		}
	}
}

// RedisStore backs the same Store contract with a shared Redis instance,
// for deployments running more than one orchestrator process behind a
// load balancer.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore builds a Store against an already-configured redis.Client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "urlsentinel:scan:"}
}

// Get fetches and JSON-decodes the cached result, treating any Redis or
// decode error as a cache miss rather than a hard failure.
func (r *RedisStore) Get(ctx context.Context, key string) (models.ScanResult, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return models.ScanResult{}, false
	}
	var result models.ScanResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.ScanResult{}, false
	}
	return result, true
}

// Set JSON-encodes and stores result with the store's configured TTL.
// Write failures are swallowed: the cache is an optimization, not a
// dependency the pipeline's correctness relies on.
func (r *RedisStore) Set(ctx context.Context, key string, result models.ScanResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	r.client.Set(ctx, r.prefix+key, raw, r.ttl)
}

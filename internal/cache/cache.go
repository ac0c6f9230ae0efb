// Package cache provides the namespaced, process-lifetime result store.
// Entries live for a per-namespace TTL; mutations invalidate whole
// namespaces rather than individual keys.
package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"omnibridge"
)

// Manager is a thread-safe in-memory cache segmented by namespace. It
// implements the omnibridge.Cache interface.
type Manager struct {
	stores map[string]map[string]entry
	ttls   map[string]time.Duration
	ttl    time.Duration
	mutex  sync.RWMutex
	stop   chan struct{}
	once   sync.Once
}

type entry struct {
	value      interface{}
	expiration int64
}

// NewManager creates a cache with one store per known namespace. TTLs come
// from the runtime configuration; namespaces absent from the map fall back
// to the default. A background sweep removes expired entries.
func NewManager(cfg omnibridge.Config) *Manager {
	m := &Manager{
		stores: make(map[string]map[string]entry),
		ttls:   make(map[string]time.Duration),
		ttl:    cfg.DefaultTTL,
		stop:   make(chan struct{}),
	}
	if m.ttl <= 0 {
		m.ttl = time.Minute
	}
	for _, ns := range omnibridge.Namespaces() {
		m.stores[ns] = make(map[string]entry)
		if ttl, ok := cfg.CacheTTLs[ns]; ok && ttl > 0 {
			m.ttls[ns] = ttl
		}
	}

	interval := cfg.CacheCleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go m.cleanupLoop(interval)
	return m
}

// Get retrieves the value for (namespace, key). Expired entries are misses;
// they are removed lazily here and eagerly by the sweep.
func (m *Manager) Get(ctx context.Context, namespace, key string) (interface{}, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	store, known := m.stores[namespace]
	if !known {
		return nil, false
	}
	item, found := store[key]
	if !found {
		return nil, false
	}
	if time.Now().UnixNano() > item.expiration {
		return nil, false
	}
	return item.value, true
}

// Set overwrites the entry, refreshing its TTL. Unknown namespaces are
// dropped silently: only the registered namespaces are ever cached.
func (m *Manager) Set(ctx context.Context, namespace, key string, value interface{}) {
	if ctx.Err() != nil {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	store, known := m.stores[namespace]
	if !known {
		log.Printf("cache: ignoring set for unknown namespace %q", namespace)
		return
	}
	store[key] = entry{
		value:      value,
		expiration: time.Now().Add(m.ttlFor(namespace)).UnixNano(),
	}
}

// Invalidate drops every entry in each given namespace. It returns only
// after the drop is visible to subsequent reads.
func (m *Manager) Invalidate(namespaces ...string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, ns := range namespaces {
		if _, known := m.stores[ns]; known {
			m.stores[ns] = make(map[string]entry)
		}
	}
}

// InvalidateForTaskChange ripples a task mutation across derived namespaces.
// Task data, analytics, and resolved perspective views always go: any task
// mutation can change what a perspective surfaces. Tag aggregates go when
// tags were touched; review views go when dates or agenda membership
// changed. A change with no field-level detail assumes the worst and drops
// every task-derived namespace.
func (m *Manager) InvalidateForTaskChange(change omnibridge.TaskChange) {
	if change.Broad() {
		m.Invalidate(
			omnibridge.NamespaceTasks,
			omnibridge.NamespaceAnalytics,
			omnibridge.NamespaceTags,
			omnibridge.NamespaceReviews,
			omnibridge.NamespacePerspectives,
		)
		return
	}

	targets := []string{
		omnibridge.NamespaceTasks,
		omnibridge.NamespaceAnalytics,
		omnibridge.NamespacePerspectives,
	}
	if change.TagsTouched {
		targets = append(targets, omnibridge.NamespaceTags)
	}
	if change.DatesTouched || change.AffectsToday || change.AffectsOverdue {
		targets = append(targets, omnibridge.NamespaceReviews)
	}
	m.Invalidate(targets...)
}

// Close stops the background sweep.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Manager) ttlFor(namespace string) time.Duration {
	if ttl, ok := m.ttls[namespace]; ok {
		return ttl
	}
	return m.ttl
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mutex.Lock()
			now := time.Now().UnixNano()
			for _, store := range m.stores {
				for key, item := range store {
					if now > item.expiration {
						delete(store, key)
					}
				}
			}
			m.mutex.Unlock()
		}
	}
}

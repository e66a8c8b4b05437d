package memory

import (
	"context"
	"sync"
	"time"
)

const DefaultMaxEntries = 500

type item struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

// Cache - быстрый эфемерный уровень: in-memory кеш с TTL и
// ограничением на число записей (вытесняем самые старые по created)
type Cache struct {
	mu         sync.RWMutex
	items      map[string]item
	maxEntries int
	stopChan   chan struct{}
	stopped    bool
}

func New(maxEntries int) *Cache {
	return NewWithContext(context.Background(), maxEntries)
}

func NewWithContext(ctx context.Context, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		items:      make(map[string]item),
		maxEntries: maxEntries,
		stopChan:   make(chan struct{}),
	}
	go c.cleanup(ctx)
	return c
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, _, ok := c.GetWithTTL(ctx, key)
	return value, ok
}

// GetWithTTL - как Get, но с остатком времени жизни записи
func (c *Cache) GetWithTTL(_ context.Context, key string) ([]byte, time.Duration, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, 0, false
	}
	now := time.Now()
	if now.After(it.expiresAt) {
		// протухшая запись = промах, убираем лениво
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur.expiresAt.Equal(it.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, 0, false
	}
	return it.value, it.expiresAt.Sub(now), true
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	c.items[key] = item{value: value, createdAt: now, expiresAt: now.Add(ttl)}
	if len(c.items) > c.maxEntries {
		c.evictOldest(len(c.items) - c.maxEntries)
	}
	c.mu.Unlock()
}

func (c *Cache) Remove(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

// evictOldest вытесняет n самых старых по времени создания записей.
// Не LRU - простота важнее, записи все равно умирают по TTL.
// Вызывать под локом.
func (c *Cache) evictOldest(n int) {
	for ; n > 0; n-- {
		var oldestKey string
		var oldestAt time.Time
		for k, it := range c.items {
			if oldestKey == "" || it.createdAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = it.createdAt
			}
		}
		if oldestKey == "" {
			return
		}
		delete(c.items, oldestKey)
	}
}

// cleanup чистит просроченные записи раз в 5 минут
func (c *Cache) cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
}

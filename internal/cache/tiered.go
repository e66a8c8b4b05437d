package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Tiered связывает два уровня: durable (переживает рестарт, например redis)
// и fast (in-memory). Чтение идет сначала в durable, при промахе - в fast;
// попадание в durable подогревает fast. Запись идет в оба уровня.
// Durable может отсутствовать (nil) - тогда работаем только с памятью.
type Tiered struct {
	durable Cache
	fast    Cache
	logger  *zap.Logger
}

func NewTiered(durable, fast Cache, logger *zap.Logger) *Tiered {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tiered{durable: durable, fast: fast, logger: logger}
}

// верхняя граница жизни подогретой копии в fast-уровне
const warmTTL = 5 * time.Minute

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if t.durable != nil {
		if value, remaining, ok := durableGet(ctx, t.durable, key); ok {
			// подогретая копия не должна жить дольше durable-записи,
			// иначе fast продолжит отдавать значение после ее TTL
			if remaining > 0 {
				t.fast.Set(ctx, key, value, min(remaining, warmTTL))
			}
			return value, true
		}
	}
	return t.fast.Get(ctx, key)
}

// durableGet читает durable-уровень, по возможности с остатком TTL.
// Нулевой остаток = неизвестен, подогрев пропускается.
func durableGet(ctx context.Context, c Cache, key string) ([]byte, time.Duration, bool) {
	if tc, ok := c.(TTLCache); ok {
		return tc.GetWithTTL(ctx, key)
	}
	value, ok := c.Get(ctx, key)
	return value, 0, ok
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	t.fast.Set(ctx, key, value, ttl)
	if t.durable != nil {
		t.durable.Set(ctx, key, value, ttl)
	}
}

func (t *Tiered) Remove(ctx context.Context, key string) {
	t.fast.Remove(ctx, key)
	if t.durable != nil {
		t.durable.Remove(ctx, key)
	}
}

func (t *Tiered) Clear(ctx context.Context) {
	t.fast.Clear(ctx)
	if t.durable != nil {
		t.durable.Clear(ctx)
	}
}

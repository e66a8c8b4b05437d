package cache

import (
	"context"
	"time"
)

// Cache - key-value store с TTL на запись.
// Значения - сериализованные байты: так один и тот же контракт работает
// и для in-memory, и для durable (redis) уровня.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Remove(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// TTLCache отдает вместе со значением остаток его TTL. Нужен tiered-кешу:
// подогретая копия не должна пережить исходную запись.
type TTLCache interface {
	Cache
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, bool)
}

// Рекомендуемые TTL по классам контента: поисковая выдача живет недолго,
// карточка товара - дольше
const (
	DefaultSearchTTL  = 15 * time.Minute
	DefaultDetailTTL  = time.Hour
	DefaultRelatedTTL = 30 * time.Minute
)

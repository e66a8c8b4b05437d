package gate

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jdelacuesta/rasuto-sub002/internal/cache"
	"github.com/jdelacuesta/rasuto-sub002/internal/catalog"
	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
	"github.com/jdelacuesta/rasuto-sub002/internal/metrics"
	"github.com/jdelacuesta/rasuto-sub002/internal/quota"
)

type Config struct {
	SearchTTL     time.Duration
	DetailTTL     time.Duration
	RelatedTTL    time.Duration
	Backoff       []time.Duration
	RateLimitWait time.Duration
}

// Deps - зависимости обертки; Metrics опционален
type Deps struct {
	Service string
	Client  catalog.Client
	Ledger  *quota.Ledger
	Cache   cache.Cache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  Config
}

// Gated оборачивает один адаптер: кеш до квоты, допуск через леджер,
// ретраи на транзиентных ошибках, запись использования после успеха.
// Сам реализует catalog.Client, так что координатор не знает про обертку.
type Gated struct {
	service string
	client  catalog.Client
	ledger  *quota.Ledger
	cache   cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
}

func New(deps Deps) *Gated {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.SearchTTL == 0 {
		deps.Config.SearchTTL = cache.DefaultSearchTTL
	}
	if deps.Config.DetailTTL == 0 {
		deps.Config.DetailTTL = cache.DefaultDetailTTL
	}
	if deps.Config.RelatedTTL == 0 {
		deps.Config.RelatedTTL = cache.DefaultRelatedTTL
	}
	if len(deps.Config.Backoff) == 0 {
		deps.Config.Backoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	}
	if deps.Config.RateLimitWait == 0 {
		deps.Config.RateLimitWait = 5 * time.Second
	}

	return &Gated{
		service: deps.Service,
		client:  deps.Client,
		ledger:  deps.Ledger,
		cache:   deps.Cache,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		cfg:     deps.Config,
	}
}

func (g *Gated) Service() string { return g.service }

func (g *Gated) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	key := fmt.Sprintf("search:%s:%s", g.service, hashKey(domain.NormalizeQuery(query)))

	var products []domain.Product
	if g.fromCache(ctx, key, &products) {
		return products, nil
	}

	products, err := callGated(ctx, g, func(ctx context.Context) ([]domain.Product, error) {
		return g.client.SearchProducts(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	g.toCache(ctx, key, products, g.cfg.SearchTTL)
	return products, nil
}

func (g *Gated) GetProductDetails(ctx context.Context, id string) (*domain.Product, error) {
	key := fmt.Sprintf("product:%s:%s", g.service, id)

	var product domain.Product
	if g.fromCache(ctx, key, &product) {
		return &product, nil
	}

	result, err := callGated(ctx, g, func(ctx context.Context) (*domain.Product, error) {
		return g.client.GetProductDetails(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	g.toCache(ctx, key, result, g.cfg.DetailTTL)
	return result, nil
}

func (g *Gated) GetRelatedProducts(ctx context.Context, id string) ([]domain.Product, error) {
	key := fmt.Sprintf("related:%s:%s", g.service, id)

	var products []domain.Product
	if g.fromCache(ctx, key, &products) {
		return products, nil
	}

	products, err := callGated(ctx, g, func(ctx context.Context) ([]domain.Product, error) {
		return g.client.GetRelatedProducts(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	g.toCache(ctx, key, products, g.cfg.RelatedTTL)
	return products, nil
}

// UsageStats - статистика квоты этого сервиса
func (g *Gated) UsageStats(ctx context.Context) domain.UsageStats {
	return g.ledger.UsageStats(ctx, g.service)
}

// callGated - общий путь: допуск, вызов с ретраями, фиксация использования.
// Ошибки не кешируются.
func callGated[T any](ctx context.Context, g *Gated, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if !g.ledger.CanMakeRequest(ctx, g.service) {
		if g.metrics != nil {
			g.metrics.RecordQuotaDenial(g.service)
		}
		g.logger.Debug("quota denied", zap.String("service", g.service))
		return zero, fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, g.service)
	}

	start := time.Now()
	result, err := retryCall(ctx, g, fn)
	if err != nil {
		if g.metrics != nil {
			g.metrics.RecordAdapterRequest(g.service, "error", time.Since(start))
		}
		return zero, err
	}

	if g.metrics != nil {
		g.metrics.RecordAdapterRequest(g.service, "success", time.Since(start))
	}

	// recordRequest ровно один раз - ретраи выше считаем одним логическим
	// обращением, admission был один
	g.ledger.RecordRequest(ctx, g.service)
	return result, nil
}

// retryCall выполняет вызов с возрастающим backoff на сетевых ошибках.
// 429 ждет один длинный фиксированный интервал и пробует еще раз;
// 401/403/decode/not found не ретраятся вообще.
func retryCall[T any](ctx context.Context, g *Gated, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	rateLimited := false

	for attempt := 0; attempt <= len(g.cfg.Backoff); attempt++ {
		if attempt > 0 {
			wait := g.cfg.Backoff[attempt-1]
			if rateLimited {
				wait = g.cfg.RateLimitWait
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, catalog.ErrRateLimit):
			if rateLimited {
				// второй 429 подряд - сдаемся
				return zero, err
			}
			rateLimited = true

		case !catalog.Transient(err):
			return zero, err

		default:
			g.logger.Debug("transient adapter error, will retry",
				zap.String("service", g.service),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			rateLimited = false
		}
	}

	return zero, lastErr
}

func (g *Gated) fromCache(ctx context.Context, key string, out interface{}) bool {
	if g.cache == nil {
		return false
	}
	raw, ok := g.cache.Get(ctx, key)
	if !ok {
		if g.metrics != nil {
			g.metrics.RecordCacheMiss()
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		g.logger.Warn("corrupt cache entry dropped", zap.String("key", key), zap.Error(err))
		g.cache.Remove(ctx, key)
		return false
	}
	if g.metrics != nil {
		g.metrics.RecordCacheHit()
	}
	return true
}

func (g *Gated) toCache(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if g.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		g.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	g.cache.Set(ctx, key, raw, ttl)
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum[:8])
}

package aggregator

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jdelacuesta/rasuto-sub002/internal/cache"
	"github.com/jdelacuesta/rasuto-sub002/internal/catalog"
	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
	"github.com/jdelacuesta/rasuto-sub002/internal/metrics"
)

// Outcome - исход обращения к одному сервису в рамках одного поиска.
// Координатор никогда не падает на частичном исходе - он его записывает
// и продолжает мержить остальные.
type Outcome struct {
	Service  string
	Products []domain.Product
	Err      error
	Duration time.Duration
}

func (o Outcome) OK() bool { return o.Err == nil }

type Result struct {
	Products  []domain.Product
	Outcomes  []Outcome
	FromCache bool
	Duration  time.Duration
}

// Succeeded считает сервисы, ответившие успешно ("N of M sources responded")
func (r *Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

type Config struct {
	CallTimeout  time.Duration // таймаут одного обращения к сервису
	CacheTTL     time.Duration // TTL смерженной выдачи
	RefreshAfter time.Duration // возраст кеша, после которого фоново обновляем
}

type Deps struct {
	Cache   cache.Cache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  Config
}

// Coordinator держит реестр rate-gated адаптеров и веером рассылает
// поисковый запрос по выбранным сервисам: merge, dedup, ранжирование,
// обрезка до maxResults.
type Coordinator struct {
	mu      sync.RWMutex
	clients map[string]catalog.Client
	order   []string // порядок регистрации, детерминирует dedup

	cache   cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config

	refreshing sync.Map // ключи кеша, по которым уже идет фоновый refresh
}

func NewCoordinator(deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.CallTimeout == 0 {
		deps.Config.CallTimeout = 8 * time.Second
	}
	if deps.Config.CacheTTL == 0 {
		deps.Config.CacheTTL = cache.DefaultSearchTTL
	}
	if deps.Config.RefreshAfter == 0 {
		deps.Config.RefreshAfter = 10 * time.Minute
	}

	return &Coordinator{
		clients: make(map[string]catalog.Client),
		cache:   deps.Cache,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		cfg:     deps.Config,
	}
}

// RegisterService привязывает адаптер к идентификатору. Повторная
// регистрация заменяет адаптер, сохраняя исходную позицию в порядке
// регистрации - dedup остается детерминированным.
func (c *Coordinator) RegisterService(serviceID string, client catalog.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.clients[serviceID]; !exists {
		c.order = append(c.order, serviceID)
	}
	c.clients[serviceID] = client
}

func (c *Coordinator) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Search - основная операция: веер по сервисам, merge, dedup, сортировка.
// Пустой запрос - no-op, не ошибка. Частичный успех - это успех.
func (c *Coordinator) Search(ctx context.Context, query string, opts domain.SearchOptions) (*Result, error) {
	start := time.Now()

	if c.metrics != nil {
		c.metrics.IncSearchesInFlight()
		defer c.metrics.DecSearchesInFlight()
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Duration: time.Since(start)}, nil
	}
	if len(query) > domain.MaxQueryLength {
		if c.metrics != nil {
			c.metrics.RecordSearch("validation_error", time.Since(start))
		}
		return nil, domain.ErrQueryTooLong
	}
	if err := opts.Validate(); err != nil {
		if c.metrics != nil {
			c.metrics.RecordSearch("validation_error", time.Since(start))
		}
		return nil, err
	}
	opts.Normalize()

	if len(opts.Services) == 0 {
		return &Result{Duration: time.Since(start)}, nil
	}

	key := c.cacheKey(query, opts)

	if payload, ok := c.cachedResult(ctx, key); ok {
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
			c.metrics.RecordSearch("cache_hit", time.Since(start))
		}
		c.maybeRefresh(key, query, opts, payload.CachedAt)
		return &Result{
			Products:  payload.Products,
			Outcomes:  payload.outcomes(),
			FromCache: true,
			Duration:  time.Since(start),
		}, nil
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}

	outcomes := c.fanOut(ctx, query, opts.Services)

	merged := mergeOutcomes(outcomes)
	if len(merged) == 0 && c.allFailed(outcomes) {
		c.logger.Warn("all services failed",
			zap.String("query", query),
			zap.Int("services", len(outcomes)),
		)
		if c.metrics != nil {
			c.metrics.RecordSearch("error", time.Since(start))
		}
		return nil, domain.ErrAllServicesFailed
	}

	sortProducts(merged, opts.Sort)
	if len(merged) > opts.MaxResults {
		merged = merged[:opts.MaxResults]
	}

	c.storeResult(ctx, key, merged, outcomes)

	if c.metrics != nil {
		c.metrics.RecordSearch("success", time.Since(start))
	}

	c.logger.Info("search merged",
		zap.String("query", query),
		zap.Int("services", len(outcomes)),
		zap.Int("products", len(merged)),
	)

	return &Result{
		Products: merged,
		Outcomes: outcomes,
		Duration: time.Since(start),
	}, nil
}

// fanOut опрашивает сервисы параллельно. Один повисший сервис портит только
// свой вклад в merge: у каждой ветки свой таймаут, ветки не блокируют друг
// друга и всегда возвращают nil в группу.
func (c *Coordinator) fanOut(ctx context.Context, query string, services []string) []Outcome {
	requested := make(map[string]bool, len(services))
	for _, s := range services {
		requested[s] = true
	}

	// порядок исходов = порядок регистрации, не порядок прихода ответов
	c.mu.RLock()
	var targets []string
	clients := make(map[string]catalog.Client, len(services))
	for _, id := range c.order {
		if requested[id] {
			targets = append(targets, id)
			clients[id] = c.clients[id]
			delete(requested, id)
		}
	}
	c.mu.RUnlock()

	outcomes := make([]Outcome, len(targets), len(services))

	g := new(errgroup.Group)
	for i, id := range targets {
		i, id := i, id
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
			defer cancel()

			callStart := time.Now()
			products, err := clients[id].SearchProducts(callCtx, query)
			outcomes[i] = Outcome{
				Service:  id,
				Products: products,
				Err:      err,
				Duration: time.Since(callStart),
			}
			if err != nil {
				c.logger.Warn("service search failed",
					zap.String("service", id),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	g.Wait()

	// запрошенные, но не зарегистрированные сервисы - тоже исход
	for id := range requested {
		outcomes = append(outcomes, Outcome{
			Service: id,
			Err:     fmt.Errorf("%w: %s", domain.ErrUnknownService, id),
		})
	}

	return outcomes
}

// mergeOutcomes конкатенирует успешные исходы и дедуплицирует по source id;
// при дубле остается копия от раньше зарегистрированного сервиса
func mergeOutcomes(outcomes []Outcome) []domain.Product {
	seen := make(map[string]bool)
	var merged []domain.Product

	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		for _, p := range o.Products {
			if seen[p.SourceID] {
				continue
			}
			seen[p.SourceID] = true
			merged = append(merged, p)
		}
	}
	return merged
}

func (c *Coordinator) allFailed(outcomes []Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if o.OK() {
			return false
		}
	}
	return true
}

// sortProducts: relevance - по рейтингу убыванием (nil как 0, стабильно,
// то есть внутрисервисный порядок сохраняется); по цене - товары без цены
// в конце
func sortProducts(products []domain.Product, order domain.SortOrder) {
	switch order {
	case domain.SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			pi, pj := products[i].Price, products[j].Price
			if pi == nil {
				return false
			}
			if pj == nil {
				return true
			}
			return *pi < *pj
		})
	case domain.SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			pi, pj := products[i].Price, products[j].Price
			if pi == nil {
				return false
			}
			if pj == nil {
				return true
			}
			return *pi > *pj
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].RatingOrZero() > products[j].RatingOrZero()
		})
	}
}

type cachedPayload struct {
	Products []domain.Product `json:"products"`
	Services []cachedOutcome  `json:"services,omitempty"`
	CachedAt time.Time        `json:"cached_at"`
}

// cachedOutcome - сериализуемый след исхода по сервису, чтобы метаданные
// "N of M sources responded" переживали кеширование
type cachedOutcome struct {
	Service string `json:"service"`
	Error   string `json:"error,omitempty"`
}

func (p *cachedPayload) outcomes() []Outcome {
	if len(p.Services) == 0 {
		return nil
	}
	outcomes := make([]Outcome, 0, len(p.Services))
	for _, s := range p.Services {
		o := Outcome{Service: s.Service}
		if s.Error != "" {
			o.Err = errors.New(s.Error)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (c *Coordinator) cachedResult(ctx context.Context, key string) (*cachedPayload, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, ok := c.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var payload cachedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn("corrupt cached result dropped", zap.String("key", key), zap.Error(err))
		c.cache.Remove(ctx, key)
		return nil, false
	}
	return &payload, true
}

func (c *Coordinator) storeResult(ctx context.Context, key string, products []domain.Product, outcomes []Outcome) {
	if c.cache == nil {
		return
	}
	services := make([]cachedOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		co := cachedOutcome{Service: o.Service}
		if o.Err != nil {
			co.Error = o.Err.Error()
		}
		services = append(services, co)
	}
	raw, err := json.Marshal(cachedPayload{Products: products, Services: services, CachedAt: time.Now()})
	if err != nil {
		c.logger.Warn("result marshal failed", zap.Error(err))
		return
	}
	c.cache.Set(ctx, key, raw, c.cfg.CacheTTL)
}

// maybeRefresh запускает фоновое обновление зачерствевшего кеша.
// Fire-and-forget: вызвавший поиск его не ждет.
func (c *Coordinator) maybeRefresh(key, query string, opts domain.SearchOptions, cachedAt time.Time) {
	if time.Since(cachedAt) < c.cfg.RefreshAfter {
		return
	}
	if _, busy := c.refreshing.LoadOrStore(key, struct{}{}); busy {
		return
	}

	go func() {
		defer c.refreshing.Delete(key)

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout+time.Second)
		defer cancel()

		outcomes := c.fanOut(ctx, query, opts.Services)
		merged := mergeOutcomes(outcomes)
		if len(merged) == 0 {
			return // не затираем кеш пустотой из-за фейлов
		}

		sortProducts(merged, opts.Sort)
		if len(merged) > opts.MaxResults {
			merged = merged[:opts.MaxResults]
		}
		c.storeResult(ctx, key, merged, outcomes)

		c.logger.Debug("background refresh completed",
			zap.String("query", query),
			zap.Int("products", len(merged)),
		)
	}()
}

// cacheKey - составной ключ: нормализованный запрос + отсортированный набор
// сервисов + значимые поля опций
func (c *Coordinator) cacheKey(query string, opts domain.SearchOptions) string {
	services := make([]string, len(opts.Services))
	copy(services, opts.Services)
	sort.Strings(services)

	data := fmt.Sprintf("%s|%s|%d|%s",
		domain.NormalizeQuery(query),
		strings.Join(services, ","),
		opts.MaxResults,
		opts.Sort,
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("agg:%x", hash[:8])
}

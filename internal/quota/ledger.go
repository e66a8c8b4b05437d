package quota

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

type Config struct {
	MonthlyLimit     int
	MinInterval      time.Duration
	BurstLimit       int
	BurstWindow      time.Duration
	HistoryRetention time.Duration
}

func (c *Config) normalize() {
	if c.MonthlyLimit <= 0 {
		c.MonthlyLimit = 1000
	}
	if c.BurstLimit <= 0 {
		c.BurstLimit = 5
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = 5 * time.Minute
	}
	if c.HistoryRetention <= 0 {
		c.HistoryRetention = 7 * 24 * time.Hour
	}
}

// Store - персистентность счетчиков квот. Load возвращает (nil, nil),
// если состояния для сервиса еще нет.
type Store interface {
	Load(ctx context.Context, service string) (*domain.QuotaState, error)
	Save(ctx context.Context, state *domain.QuotaState) error
}

// Ledger следит за квотами всех upstream-сервисов: месячный лимит,
// минимальный интервал между запросами и burst-окно.
// Отказ в допуске - это не ошибка, а штатный исход.
type Ledger struct {
	mu       sync.RWMutex
	services map[string]*serviceState

	store  Store
	cfg    Config
	logger *zap.Logger
}

// состояние одного сервиса; мутации только под его собственным локом
type serviceState struct {
	mu       sync.Mutex
	state    domain.QuotaState
	interval *rate.Limiter // анти-hammering gate, nil если MinInterval == 0
}

func NewLedger(store Store, cfg Config, logger *zap.Logger) *Ledger {
	cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		services: make(map[string]*serviceState),
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// CanMakeRequest - атомарная проверка допуска для сервиса.
// Ничего не потребляет: фиксация использования - в RecordRequest.
func (l *Ledger) CanMakeRequest(ctx context.Context, service string) bool {
	s := l.ensure(ctx, service)

	s.mu.Lock()
	now := time.Now()
	resetSnap := l.resetIfNewMonth(s, now)
	ok := l.admit(s, now)
	s.mu.Unlock()

	// персист сброса - вне лока, чтобы медленный сторадж на границе месяца
	// не тормозил допуск конкурентных вызовов
	if resetSnap != nil {
		l.persist(ctx, resetSnap)
	}
	return ok
}

// admit - проверки допуска; вызывать под локом сервиса
func (l *Ledger) admit(s *serviceState, now time.Time) bool {
	// минимальный интервал: лимитер (in-process) плюс персистентный
	// last_request, переживающий рестарт
	if l.cfg.MinInterval > 0 {
		if s.interval != nil && s.interval.Tokens() < 1 {
			return false
		}
		if !s.state.LastRequest.IsZero() && now.Sub(s.state.LastRequest) < l.cfg.MinInterval {
			return false
		}
	}

	if s.state.MonthlyUsed >= l.cfg.MonthlyLimit {
		return false
	}

	if l.countWithin(s, now, l.cfg.BurstWindow) >= l.cfg.BurstLimit {
		return false
	}

	return true
}

// RecordRequest фиксирует один реальный вызов upstream. Вызывать строго
// после успешного допуска и ровно один раз на вызов.
func (l *Ledger) RecordRequest(ctx context.Context, service string) {
	s := l.ensure(ctx, service)

	s.mu.Lock()

	now := time.Now()
	// снапшот сброса не нужен: ниже персистим итоговое состояние
	l.resetIfNewMonth(s, now)

	s.state.MonthlyUsed++
	s.state.LastRequest = now
	s.state.History = append(s.state.History, now)
	l.pruneHistory(s, now)

	if s.interval != nil {
		s.interval.Allow() // потребляем интервальный токен
	}

	snapshot := s.cloneState()
	s.mu.Unlock()

	l.persist(ctx, snapshot)
}

// UsageStats - производная read-only статистика для диагностики
func (l *Ledger) UsageStats(ctx context.Context, service string) domain.UsageStats {
	s := l.ensure(ctx, service)

	s.mu.Lock()
	now := time.Now()
	resetSnap := l.resetIfNewMonth(s, now)

	remaining := l.cfg.MonthlyLimit - s.state.MonthlyUsed
	if remaining < 0 {
		remaining = 0
	}

	// первый день следующего месяца
	year, month, _ := now.Date()
	resetDate := time.Date(year, month, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)

	dayOfMonth := now.Day()
	avg := float64(s.state.MonthlyUsed) / float64(dayOfMonth)

	stats := domain.UsageStats{
		Service:      service,
		MonthlyUsed:  s.state.MonthlyUsed,
		MonthlyLimit: l.cfg.MonthlyLimit,
		Remaining:    remaining,
		Last24h:      l.countWithin(s, now, 24*time.Hour),
		Last7d:       l.countWithin(s, now, 7*24*time.Hour),
		ResetDate:    resetDate,
		AvgPerDay:    avg,
	}
	s.mu.Unlock()

	if resetSnap != nil {
		l.persist(ctx, resetSnap)
	}
	return stats
}

// ensure возвращает состояние сервиса, создавая и подгружая его при первом
// обращении. Под RLock на быстрый путь, под полным - на создание.
func (l *Ledger) ensure(ctx context.Context, service string) *serviceState {
	l.mu.RLock()
	s, ok := l.services[service]
	l.mu.RUnlock()
	if ok {
		return s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.services[service]; ok {
		return s
	}

	s = &serviceState{
		state: domain.QuotaState{
			Service: service,
			Period:  time.Now().Format(domain.PeriodFormat),
		},
	}
	if l.cfg.MinInterval > 0 {
		s.interval = rate.NewLimiter(rate.Every(l.cfg.MinInterval), 1)
	}

	if l.store != nil {
		loaded, err := l.store.Load(ctx, service)
		if err != nil {
			l.logger.Warn("quota state load failed, starting fresh",
				zap.String("service", service),
				zap.Error(err),
			)
		} else if loaded != nil {
			s.state = *loaded
			s.state.Service = service
		}
	}

	l.services[service] = s
	return s
}

// resetIfNewMonth сбрасывает месячный счетчик при смене календарного месяца
// и возвращает снапшот для персиста (nil, если сброса не было).
// Вызывать под локом сервиса - тогда сброс происходит ровно один раз;
// сам персист - забота вызывающего, после отпускания лока.
func (l *Ledger) resetIfNewMonth(s *serviceState, now time.Time) *domain.QuotaState {
	period := now.Format(domain.PeriodFormat)
	if s.state.Period == period {
		return nil
	}

	l.logger.Info("monthly quota reset",
		zap.String("service", s.state.Service),
		zap.String("old_period", s.state.Period),
		zap.String("new_period", period),
		zap.Int("used", s.state.MonthlyUsed),
	)

	s.state.Period = period
	s.state.MonthlyUsed = 0
	l.pruneHistory(s, now)

	return s.cloneState()
}

// вызывать под локом сервиса
func (l *Ledger) countWithin(s *serviceState, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	cnt := 0
	for _, t := range s.state.History {
		if t.After(cutoff) {
			cnt++
		}
	}
	return cnt
}

// вызывать под локом сервиса
func (l *Ledger) pruneHistory(s *serviceState, now time.Time) {
	cutoff := now.Add(-l.cfg.HistoryRetention)
	fresh := s.state.History[:0]
	for _, t := range s.state.History {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	s.state.History = fresh
}

// persist сохраняет снапшот best-effort: ошибка стораджа не должна
// блокировать успешный поиск
func (l *Ledger) persist(ctx context.Context, snapshot *domain.QuotaState) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, snapshot); err != nil {
		l.logger.Warn("quota state save failed",
			zap.String("service", snapshot.Service),
			zap.Error(err),
		)
	}
}

// вызывать под локом сервиса
func (s *serviceState) cloneState() *domain.QuotaState {
	clone := s.state
	clone.History = append([]time.Time(nil), s.state.History...)
	return &clone
}

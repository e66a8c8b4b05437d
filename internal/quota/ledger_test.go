package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

func TestLedger_MonthlyMonotonicity(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), Config{
		MonthlyLimit: 3,
		BurstLimit:   10,
	}, nil)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !ledger.CanMakeRequest(ctx, "bestbuy") {
			t.Fatalf("request %d should be admitted", i+1)
		}
		ledger.RecordRequest(ctx, "bestbuy")
	}

	stats := ledger.UsageStats(ctx, "bestbuy")
	if stats.MonthlyUsed != 3 {
		t.Errorf("MonthlyUsed = %d, want 3", stats.MonthlyUsed)
	}

	if ledger.CanMakeRequest(ctx, "bestbuy") {
		t.Error("request should be denied at monthly limit")
	}
}

func TestLedger_BurstProtection(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), Config{
		MonthlyLimit: 1000,
		BurstLimit:   5,
		BurstWindow:  5 * time.Minute,
	}, nil)

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !ledger.CanMakeRequest(ctx, "bestbuy") {
			t.Fatalf("request %d should be admitted", i+1)
		}
		ledger.RecordRequest(ctx, "bestbuy")
	}

	// 6th request hits the burst window even though monthly is far from limit
	if ledger.CanMakeRequest(ctx, "bestbuy") {
		t.Error("6th request within burst window should be denied")
	}

	stats := ledger.UsageStats(ctx, "bestbuy")
	if stats.MonthlyUsed != 5 {
		t.Errorf("MonthlyUsed = %d, want 5", stats.MonthlyUsed)
	}
}

func TestLedger_MinInterval(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), Config{
		MonthlyLimit: 1000,
		BurstLimit:   100,
		MinInterval:  time.Minute,
	}, nil)

	ctx := context.Background()

	if !ledger.CanMakeRequest(ctx, "bestbuy") {
		t.Fatal("first request should be admitted")
	}
	ledger.RecordRequest(ctx, "bestbuy")

	if ledger.CanMakeRequest(ctx, "bestbuy") {
		t.Error("request within min interval should be denied")
	}
}

func TestLedger_IndependentServices(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), Config{
		MonthlyLimit: 1,
		BurstLimit:   10,
	}, nil)

	ctx := context.Background()

	ledger.RecordRequest(ctx, "bestbuy")

	if ledger.CanMakeRequest(ctx, "bestbuy") {
		t.Error("bestbuy should be at its limit")
	}
	if !ledger.CanMakeRequest(ctx, "rakuten") {
		t.Error("rakuten counter must be independent of bestbuy")
	}
}

func TestLedger_MonthlyReset(t *testing.T) {
	store := NewMemoryStore()
	store.Preload(domain.QuotaState{
		Service:     "bestbuy",
		Period:      "2020-01",
		MonthlyUsed: 999,
	})

	ledger := NewLedger(store, Config{
		MonthlyLimit: 100,
		BurstLimit:   10,
	}, nil)

	ctx := context.Background()

	// stored period is stale, the counter must reset before admission
	if !ledger.CanMakeRequest(ctx, "bestbuy") {
		t.Error("request should be admitted after monthly reset")
	}

	stats := ledger.UsageStats(ctx, "bestbuy")
	if stats.MonthlyUsed != 0 {
		t.Errorf("MonthlyUsed after reset = %d, want 0", stats.MonthlyUsed)
	}
	if stats.Remaining != 100 {
		t.Errorf("Remaining after reset = %d, want 100", stats.Remaining)
	}
}

func TestLedger_ResetIsPersisted(t *testing.T) {
	store := NewMemoryStore()
	store.Preload(domain.QuotaState{
		Service:     "bestbuy",
		Period:      "2020-01",
		MonthlyUsed: 999,
	})

	ledger := NewLedger(store, Config{MonthlyLimit: 100, BurstLimit: 10}, nil)
	ctx := context.Background()

	ledger.CanMakeRequest(ctx, "bestbuy")

	if store.SaveCalls == 0 {
		t.Fatal("monthly reset must be persisted")
	}
	saved, err := store.Load(ctx, "bestbuy")
	if err != nil || saved == nil {
		t.Fatalf("Load() = %v, %v", saved, err)
	}
	if saved.MonthlyUsed != 0 {
		t.Errorf("persisted MonthlyUsed = %d, want 0 after reset", saved.MonthlyUsed)
	}
	if want := time.Now().Format(domain.PeriodFormat); saved.Period != want {
		t.Errorf("persisted Period = %q, want %q", saved.Period, want)
	}
}

// Save висит до release - имитация тормозящего стораджа
type blockingStore struct {
	MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Save(ctx context.Context, state *domain.QuotaState) error {
	b.entered <- struct{}{}
	<-b.release
	return b.MemoryStore.Save(ctx, state)
}

func TestLedger_SlowStoreDoesNotBlockAdmission(t *testing.T) {
	store := &blockingStore{
		MemoryStore: *NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	store.Preload(domain.QuotaState{
		Service:     "bestbuy",
		Period:      "2020-01",
		MonthlyUsed: 1,
	})

	ledger := NewLedger(store, Config{MonthlyLimit: 100, BurstLimit: 10}, nil)
	ctx := context.Background()

	// первый вызов триггерит сброс месяца и зависает в Save
	firstDone := make(chan bool, 1)
	go func() { firstDone <- ledger.CanMakeRequest(ctx, "bestbuy") }()
	<-store.entered

	// пока сторадж висит, допуск конкурентных вызовов идет без задержки
	secondDone := make(chan bool, 1)
	go func() { secondDone <- ledger.CanMakeRequest(ctx, "bestbuy") }()

	select {
	case ok := <-secondDone:
		if !ok {
			t.Error("second check should be admitted")
		}
	case <-time.After(time.Second):
		t.Fatal("admission check blocked by a slow store write")
	}

	close(store.release)
	if !<-firstDone {
		t.Error("first check should be admitted")
	}
}

func TestLedger_PersistsAfterRecord(t *testing.T) {
	store := NewMemoryStore()
	ledger := NewLedger(store, Config{
		MonthlyLimit: 100,
		BurstLimit:   10,
	}, nil)

	ctx := context.Background()
	ledger.RecordRequest(ctx, "bestbuy")

	if store.SaveCalls == 0 {
		t.Error("RecordRequest should persist state")
	}

	loaded, err := store.Load(ctx, "bestbuy")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil || loaded.MonthlyUsed != 1 {
		t.Errorf("persisted state = %+v, want MonthlyUsed=1", loaded)
	}
}

func TestLedger_SurvivesRestart(t *testing.T) {
	store := NewMemoryStore()

	first := NewLedger(store, Config{MonthlyLimit: 2, BurstLimit: 10}, nil)
	ctx := context.Background()
	first.RecordRequest(ctx, "bestbuy")
	first.RecordRequest(ctx, "bestbuy")

	// new ledger over the same store = process restart
	second := NewLedger(store, Config{MonthlyLimit: 2, BurstLimit: 10}, nil)
	if second.CanMakeRequest(ctx, "bestbuy") {
		t.Error("counter must survive restart, request should be denied")
	}
}

func TestLedger_StoreFailureIsBestEffort(t *testing.T) {
	store := NewMemoryStore()
	store.SaveErr = errors.New("disk full")

	ledger := NewLedger(store, Config{MonthlyLimit: 100, BurstLimit: 10}, nil)
	ctx := context.Background()

	// save failure must not block the request path
	ledger.RecordRequest(ctx, "bestbuy")

	stats := ledger.UsageStats(ctx, "bestbuy")
	if stats.MonthlyUsed != 1 {
		t.Errorf("MonthlyUsed = %d, want 1 despite save failure", stats.MonthlyUsed)
	}
}

func TestLedger_UsageStats(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), Config{
		MonthlyLimit: 10,
		BurstLimit:   100,
	}, nil)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		ledger.RecordRequest(ctx, "bestbuy")
	}

	stats := ledger.UsageStats(ctx, "bestbuy")
	if stats.MonthlyUsed != 4 {
		t.Errorf("MonthlyUsed = %d, want 4", stats.MonthlyUsed)
	}
	if stats.Remaining != 6 {
		t.Errorf("Remaining = %d, want 6", stats.Remaining)
	}
	if stats.Last24h != 4 {
		t.Errorf("Last24h = %d, want 4", stats.Last24h)
	}
	if stats.Last7d != 4 {
		t.Errorf("Last7d = %d, want 4", stats.Last7d)
	}
	if !stats.ResetDate.After(time.Now()) {
		t.Errorf("ResetDate = %v, want in the future", stats.ResetDate)
	}
	if stats.ResetDate.Day() != 1 {
		t.Errorf("ResetDate day = %d, want 1", stats.ResetDate.Day())
	}
	if stats.AvgPerDay <= 0 {
		t.Errorf("AvgPerDay = %f, want positive", stats.AvgPerDay)
	}
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), Config{
		MonthlyLimit: 1000,
		BurstLimit:   1000,
	}, nil)

	ctx := context.Background()
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 10; j++ {
				ledger.CanMakeRequest(ctx, "bestbuy")
				ledger.RecordRequest(ctx, "bestbuy")
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	stats := ledger.UsageStats(ctx, "bestbuy")
	if stats.MonthlyUsed != 100 {
		t.Errorf("MonthlyUsed = %d, want 100", stats.MonthlyUsed)
	}
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
)

// MockProvider for PriceService
type MockProvider struct {
	mu          sync.Mutex
	priceCalls  int
	tickerCalls int

	price      *domain.PriceRecord
	priceErr   error
	tickers    []domain.PriceRecord
	tickersErr error

	// When set, GetPrice blocks until the channel is closed.
	block chan struct{}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) GetPrice(ctx context.Context) (*domain.PriceRecord, error) {
	m.mu.Lock()
	m.priceCalls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	rec := *m.price
	return &rec, nil
}

func (m *MockProvider) GetTickers(ctx context.Context) ([]domain.PriceRecord, error) {
	m.mu.Lock()
	m.tickerCalls++
	m.mu.Unlock()

	if m.tickersErr != nil {
		return nil, m.tickersErr
	}
	return m.tickers, nil
}

func (m *MockProvider) PriceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.priceCalls
}

func newTestPriceService(primary, secondary domain.MarketDataProvider) *PriceService {
	s := NewPriceService(primary, secondary, 30*time.Second, zap.NewNop())
	s.randFloat = func() float64 { return 0.5 } // zero jitter
	return s
}

func TestPriceService_FreshCacheSkipsUpstream(t *testing.T) {
	provider := &MockProvider{
		price: &domain.PriceRecord{ExchangeName: "coingecko", Price: 107000},
	}
	s := newTestPriceService(provider, nil)

	currentTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.timeNow = func() time.Time { return currentTime }

	ctx := context.Background()
	s.GetPrices(ctx)
	if got := provider.PriceCalls(); got != 1 {
		t.Fatalf("expected 1 upstream call after first read, got %d", got)
	}

	// Second read within the interval must not touch upstream.
	currentTime = currentTime.Add(10 * time.Second)
	s.GetPrices(ctx)
	if got := provider.PriceCalls(); got != 1 {
		t.Errorf("fresh read triggered an upstream call, total %d", got)
	}
}

func TestPriceService_StaleCacheRefreshesOnce(t *testing.T) {
	provider := &MockProvider{
		price: &domain.PriceRecord{ExchangeName: "coingecko", Price: 107000},
	}
	s := newTestPriceService(provider, nil)

	currentTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.timeNow = func() time.Time { return currentTime }

	ctx := context.Background()
	s.GetPrices(ctx)

	currentTime = currentTime.Add(31 * time.Second)
	s.GetPrices(ctx)
	if got := provider.PriceCalls(); got != 2 {
		t.Errorf("stale read should trigger exactly one more fetch cycle, total %d", got)
	}
}

func TestPriceService_CoalescedRefresh(t *testing.T) {
	block := make(chan struct{})
	provider := &MockProvider{
		price: &domain.PriceRecord{ExchangeName: "coingecko", Price: 107000},
		block: block,
	}
	s := newTestPriceService(provider, nil)

	ctx := context.Background()
	results := make(chan []domain.PriceRecord, 2)

	go func() { results <- s.GetPrices(ctx) }()

	// Let the first reader claim the in-flight slot before the second arrives.
	waitFor(t, func() bool { return provider.PriceCalls() == 1 })

	go func() { results <- s.GetPrices(ctx) }()
	time.Sleep(20 * time.Millisecond)
	close(block)

	first := <-results
	second := <-results

	if got := provider.PriceCalls(); got != 1 {
		t.Errorf("concurrent readers should coalesce onto one fetch, got %d", got)
	}
	if len(first) != len(second) {
		t.Fatalf("coalesced readers saw different data: %d vs %d records", len(first), len(second))
	}
	for i := range first {
		if first[i].Price != second[i].Price {
			t.Errorf("record %d differs between coalesced readers: %v vs %v", i, first[i].Price, second[i].Price)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPriceService_OutOfRangeBaselineClamped(t *testing.T) {
	provider := &MockProvider{
		price: &domain.PriceRecord{ExchangeName: "coingecko", Price: 5_000_000},
	}
	s := newTestPriceService(provider, nil)

	records := s.GetPrices(context.Background())
	for _, r := range records {
		if r.Price != BaselinePrice {
			t.Errorf("exchange %s got price %v, want baseline %v", r.ExchangeName, r.Price, BaselinePrice)
		}
		if !r.Synthetic {
			t.Errorf("exchange %s should be synthetic after clamping", r.ExchangeName)
		}
	}
}

func TestPriceService_SyntheticBackfill(t *testing.T) {
	provider := &MockProvider{
		price: &domain.PriceRecord{ExchangeName: "coingecko", Price: 107000},
		tickers: []domain.PriceRecord{
			{ExchangeName: "gdax", Price: 107100, Spread: 0.2},
			{ExchangeName: "binance", Price: 106900, Spread: 0.15},
			{ExchangeName: "some_unknown_venue", Price: 99000},
		},
	}
	s := NewPriceService(provider, nil, 30*time.Second, zap.NewNop())

	records := s.GetPrices(context.Background())
	if len(records) != len(domain.CanonicalExchanges) {
		t.Fatalf("expected %d records, got %d", len(domain.CanonicalExchanges), len(records))
	}

	live := 0
	for _, r := range records {
		if r.ExchangeName == "some_unknown_venue" {
			t.Error("unmapped provider venue leaked into the canonical set")
		}
		if !r.Synthetic {
			live++
			continue
		}
		// Synthetic prices stay within +-0.5% of the baseline.
		lo, hi := 107000*0.995, 107000*1.005
		if r.Price < lo || r.Price > hi {
			t.Errorf("synthetic price for %s is %v, outside [%v, %v]", r.ExchangeName, r.Price, lo, hi)
		}
	}
	if live != 2 {
		t.Errorf("expected 2 live records (coinbase, binance), got %d", live)
	}
}

func TestPriceService_AllUpstreamFailedStillReturnsData(t *testing.T) {
	provider := &MockProvider{
		priceErr:   errors.New("network down"),
		tickersErr: errors.New("network down"),
	}
	secondary := &MockProvider{priceErr: errors.New("also down")}
	s := newTestPriceService(provider, secondary)

	records := s.GetPrices(context.Background())
	if len(records) != len(domain.CanonicalExchanges) {
		t.Fatalf("expected full synthetic fallback, got %d records", len(records))
	}
	for _, r := range records {
		if !r.Synthetic {
			t.Errorf("exchange %s should be synthetic when every upstream failed", r.ExchangeName)
		}
		if r.Price != BaselinePrice {
			t.Errorf("exchange %s price %v, want baseline %v with zero jitter", r.ExchangeName, r.Price, BaselinePrice)
		}
	}
}

func TestPriceService_SecondaryProviderFallback(t *testing.T) {
	primary := &MockProvider{priceErr: errors.New("rate limited")}
	secondary := &MockProvider{
		price: &domain.PriceRecord{ExchangeName: "cryptocompare", Price: 106500},
	}
	s := newTestPriceService(primary, secondary)

	records := s.GetPrices(context.Background())
	for _, r := range records {
		if r.Price != 106500 {
			t.Errorf("exchange %s should be anchored at the secondary baseline, got %v", r.ExchangeName, r.Price)
		}
	}
}

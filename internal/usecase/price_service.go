package usecase

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
)

const (
	// BaselinePrice stands in whenever no upstream source can be trusted.
	BaselinePrice = 107000.0

	// Upstream prices outside this band are discarded as provider glitches.
	MinBitcoinPrice = 10000.0
	MaxBitcoinPrice = 1000000.0

	DefaultRefreshInterval = 30 * time.Second

	// Synthetic per-exchange prices are perturbed at most this far from the
	// baseline, in percent.
	syntheticJitterPct = 0.5
)

// providerExchangeAliases maps provider-side exchange identifiers onto the
// canonical nine. Identifiers not listed here are ignored.
var providerExchangeAliases = map[string]string{
	"gdax":              "coinbase",
	"coinbase":          "coinbase",
	"coinbase_exchange": "coinbase",
	"binance":           "binance",
	"binance_us":        "binance",
	"binanceus":         "binance",
	"kraken":            "kraken",
	"robinhood":         "robinhood",
	"crypto_com":        "crypto.com",
	"crypto.com":        "crypto.com",
	"cryptodotcom":      "crypto.com",
	"gemini":            "gemini",
	"river":             "river",
	"bitfinex":          "bitfinex",
	"strike":            "strike",
}

// PriceService owns the in-memory per-exchange price cache. Reads within the
// refresh interval are served from memory; a stale read triggers one refresh
// cycle, and concurrent stale readers coalesce onto the same in-flight
// refresh. The service never surfaces upstream failures: every gap is filled
// with synthetic data flagged as such.
type PriceService struct {
	primary         domain.MarketDataProvider
	secondary       domain.MarketDataProvider
	refreshInterval time.Duration
	logger          *zap.Logger

	mu          sync.Mutex
	records     []domain.PriceRecord
	lastRefresh time.Time
	inflight    chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once

	timeNow   func() time.Time
	randFloat func() float64
}

func NewPriceService(primary, secondary domain.MarketDataProvider, refreshInterval time.Duration, logger *zap.Logger) *PriceService {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &PriceService{
		primary:         primary,
		secondary:       secondary,
		refreshInterval: refreshInterval,
		logger:          logger,
		stopCh:          make(chan struct{}),
		timeNow:         time.Now,
		randFloat:       rand.Float64,
	}
}

// Start warms the cache and keeps it warm with a background refresh loop.
func (s *PriceService) Start(ctx context.Context) {
	s.GetPrices(ctx)

	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.GetPrices(context.Background())
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *PriceService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// GetPrices returns the cached per-exchange records, refreshing first when
// the cache is older than the refresh interval. It never returns an error:
// the worst case is fully synthetic data.
func (s *PriceService) GetPrices(ctx context.Context) []domain.PriceRecord {
	s.mu.Lock()

	if len(s.records) > 0 && s.timeNow().Sub(s.lastRefresh) < s.refreshInterval {
		out := s.snapshotLocked()
		s.mu.Unlock()
		return out
	}

	if s.inflight != nil {
		// Another reader is already refreshing; wait for its result.
		ch := s.inflight
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
		}
		s.mu.Lock()
		out := s.snapshotLocked()
		s.mu.Unlock()
		return out
	}

	ch := make(chan struct{})
	s.inflight = ch
	s.mu.Unlock()

	records := s.refresh(ctx)

	s.mu.Lock()
	s.records = records
	s.lastRefresh = s.timeNow()
	s.inflight = nil
	out := s.snapshotLocked()
	s.mu.Unlock()
	close(ch)

	return out
}

// LatestPrice is the mean live price across exchanges, preferring real
// records over synthetic ones. Returns 0 when the cache has never filled.
func (s *PriceService) LatestPrice(ctx context.Context) float64 {
	records := s.GetPrices(ctx)
	if len(records) == 0 {
		return 0
	}

	var sum float64
	var n int
	for _, r := range records {
		if !r.Synthetic {
			sum += r.Price
			n++
		}
	}
	if n == 0 {
		for _, r := range records {
			sum += r.Price
		}
		n = len(records)
	}
	return sum / float64(n)
}

// LastUpdated reports when the cache was last refreshed.
func (s *PriceService) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

func (s *PriceService) snapshotLocked() []domain.PriceRecord {
	out := make([]domain.PriceRecord, len(s.records))
	copy(out, s.records)
	return out
}

// refresh runs one upstream-fetch-and-merge cycle. Every canonical exchange
// gets a record: live where the ticker feed had one, synthetic otherwise.
func (s *PriceService) refresh(ctx context.Context) []domain.PriceRecord {
	now := s.timeNow()
	baseline, baselineSynthetic := s.fetchBaseline(ctx)

	live := make(map[string]domain.PriceRecord)
	if s.primary != nil {
		tickers, err := s.primary.GetTickers(ctx)
		if err != nil {
			s.logger.Warn("ticker fetch failed, filling with synthetic data", zap.Error(err))
		}
		for _, t := range tickers {
			canonical, ok := providerExchangeAliases[t.ExchangeName]
			if !ok {
				continue
			}
			if _, seen := live[canonical]; seen {
				continue
			}
			t.ExchangeName = canonical
			t.Timestamp = now
			live[canonical] = t
		}
	}

	records := make([]domain.PriceRecord, 0, len(domain.CanonicalExchanges))
	for _, ex := range domain.CanonicalExchanges {
		if rec, ok := live[ex.ID]; ok {
			records = append(records, rec)
			continue
		}
		records = append(records, s.syntheticRecord(ex.ID, baseline, now))
	}

	s.logger.Info("refresh cycle complete",
		zap.Float64("baseline", baseline),
		zap.Bool("baseline_synthetic", baselineSynthetic),
		zap.Int("live_exchanges", len(live)))

	return records
}

// fetchBaseline tries the primary then the secondary provider and validates
// the result against the sanity band. Any failure yields BaselinePrice.
func (s *PriceService) fetchBaseline(ctx context.Context) (float64, bool) {
	for _, p := range []domain.MarketDataProvider{s.primary, s.secondary} {
		if p == nil {
			continue
		}
		rec, err := p.GetPrice(ctx)
		if err != nil {
			s.logger.Warn("baseline fetch failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if rec.Price < MinBitcoinPrice || rec.Price > MaxBitcoinPrice {
			s.logger.Warn("baseline price out of range, using fallback constant",
				zap.String("provider", p.Name()), zap.Float64("price", rec.Price))
			return BaselinePrice, true
		}
		return rec.Price, false
	}
	return BaselinePrice, true
}

func (s *PriceService) syntheticRecord(exchangeID string, baseline float64, now time.Time) domain.PriceRecord {
	jitter := (s.randFloat() - 0.5) * 2 * syntheticJitterPct / 100
	return domain.PriceRecord{
		ExchangeName: exchangeID,
		Price:        baseline * (1 + jitter),
		Volume24h:    500_000_000 + s.randFloat()*2_000_000_000,
		Change24h:    (s.randFloat() - 0.5) * 8,
		Spread:       0.1 + s.randFloat()*0.4,
		Synthetic:    true,
		Timestamp:    now,
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
	"github.com/bitcompare/bitcompare/internal/infrastructure/cache"
)

// PriceSource is the slice of PriceService the comparison layer needs.
type PriceSource interface {
	GetPrices(ctx context.Context) []domain.PriceRecord
	LastUpdated() time.Time
}

// ChartRanges enumerates the accepted values of the range query parameter.
var ChartRanges = map[string]struct {
	Points int
	Step   time.Duration
}{
	"1d":  {Points: 24, Step: time.Hour},
	"7d":  {Points: 56, Step: 3 * time.Hour},
	"30d": {Points: 30, Step: 24 * time.Hour},
	"90d": {Points: 90, Step: 24 * time.Hour},
	"1y":  {Points: 52, Step: 7 * 24 * time.Hour},
}

const chartCacheTTL = 5 * time.Minute

// ComparisonService reshapes the price cache into the fixed nine-exchange
// comparison view and derives chart/history payloads from it.
type ComparisonService struct {
	prices PriceSource
	cache  cache.Cache
	logger *zap.Logger

	timeNow   func() time.Time
	randFloat func() float64
}

func NewComparisonService(prices PriceSource, c cache.Cache, logger *zap.Logger) *ComparisonService {
	return &ComparisonService{
		prices:    prices,
		cache:     c,
		logger:    logger,
		timeNow:   time.Now,
		randFloat: rand.Float64,
	}
}

// GetCurrentPrices returns exactly one entry per canonical exchange, in
// canonical order. Exchanges missing from the cache are backfilled with a
// synthetic price near the average of the known ones; cache entries outside
// the canonical list are dropped.
func (s *ComparisonService) GetCurrentPrices(ctx context.Context) ([]domain.ExchangePriceData, error) {
	records := s.prices.GetPrices(ctx)
	if len(records) == 0 {
		return nil, domain.ErrNoPriceData
	}

	byName := make(map[string]domain.PriceRecord, len(records))
	var sum float64
	for _, r := range records {
		byName[r.ExchangeName] = r
		sum += r.Price
	}
	avg := sum / float64(len(records))

	now := s.timeNow()
	out := make([]domain.ExchangePriceData, 0, len(domain.CanonicalExchanges))
	for _, ex := range domain.CanonicalExchanges {
		rec, ok := byName[ex.ID]
		if !ok {
			jitter := (s.randFloat() - 0.5) * 2 * syntheticJitterPct / 100
			rec = domain.PriceRecord{
				ExchangeName: ex.ID,
				Price:        avg * (1 + jitter),
				Volume24h:    500_000_000 + s.randFloat()*2_000_000_000,
				Change24h:    (s.randFloat() - 0.5) * 8,
				Spread:       0.1 + s.randFloat()*0.4,
				Synthetic:    true,
				Timestamp:    now,
			}
		}
		out = append(out, domain.ExchangePriceData{
			ExchangeDescriptor: ex,
			Price:              rec.Price,
			Volume24h:          rec.Volume24h,
			Change24h:          rec.Change24h,
			Spread:             rec.Spread,
			Synthetic:          rec.Synthetic,
			Timestamp:          rec.Timestamp,
		})
	}

	markBestPrice(out)
	return out, nil
}

// markBestPrice flags the single minimum-price entry.
func markBestPrice(exchanges []domain.ExchangePriceData) {
	if len(exchanges) == 0 {
		return
	}
	best := 0
	for i := range exchanges {
		exchanges[i].IsBestPrice = false
		if exchanges[i].Price < exchanges[best].Price {
			best = i
		}
	}
	exchanges[best].IsBestPrice = true
}

// GetPriceComparison recomputes the comparison summary from the current
// nine-exchange view.
//
// MaxSpread and AverageSpread are deliberately different metrics; see the
// field docs on domain.PriceComparison.
func (s *ComparisonService) GetPriceComparison(ctx context.Context) (*domain.PriceComparison, error) {
	exchanges, err := s.GetCurrentPrices(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildComparison(exchanges, s.prices.LastUpdated()), nil
}

func (s *ComparisonService) buildComparison(exchanges []domain.ExchangePriceData, lastUpdated time.Time) *domain.PriceComparison {
	minPrice, maxPrice := exchanges[0].Price, exchanges[0].Price
	best := exchanges[0].ID
	var spreadSum float64
	for _, ex := range exchanges {
		if ex.Price < minPrice {
			minPrice = ex.Price
			best = ex.ID
		}
		if ex.Price > maxPrice {
			maxPrice = ex.Price
		}
		spreadSum += ex.Spread
	}

	return &domain.PriceComparison{
		Exchanges:     exchanges,
		BestExchange:  best,
		MaxSpread:     maxPrice - minPrice,
		AverageSpread: spreadSum / float64(len(exchanges)),
		LastUpdated:   lastUpdated,
	}
}

// GetHistoricalComparison synthesizes what the comparison plausibly looked
// like at a past timestamp. The timestamp must not be in the future nor more
// than a year back.
func (s *ComparisonService) GetHistoricalComparison(ctx context.Context, ts time.Time) (*domain.PriceComparison, error) {
	now := s.timeNow()
	if ts.After(now) {
		return nil, domain.NewValidationError("timestamp", "must not be in the future")
	}
	if now.Sub(ts) > 365*24*time.Hour {
		return nil, domain.NewValidationError("timestamp", "must be within the past year")
	}

	current, err := s.GetCurrentPrices(ctx)
	if err != nil {
		return nil, err
	}

	// Drift the anchor price by up to 25% scaled with age, so older
	// timestamps wander further from today's price.
	ageFraction := now.Sub(ts).Hours() / (365 * 24)
	drift := 1 + (s.randFloat()-0.5)*0.5*ageFraction
	anchor := current[0].Price * drift

	exchanges := make([]domain.ExchangePriceData, 0, len(domain.CanonicalExchanges))
	for _, ex := range domain.CanonicalExchanges {
		jitter := (s.randFloat() - 0.5) * 2 * syntheticJitterPct / 100
		exchanges = append(exchanges, domain.ExchangePriceData{
			ExchangeDescriptor: ex,
			Price:              anchor * (1 + jitter),
			Volume24h:          500_000_000 + s.randFloat()*2_000_000_000,
			Change24h:          (s.randFloat() - 0.5) * 8,
			Spread:             0.1 + s.randFloat()*0.4,
			Synthetic:          true,
			Timestamp:          ts,
		})
	}
	markBestPrice(exchanges)

	return s.buildComparison(exchanges, ts), nil
}

// GetChartHistory returns a price/volume series for one of the fixed ranges.
// Series are generated as a random walk anchored at the live price and cached
// so repeated chart loads within the TTL see the same curve.
func (s *ComparisonService) GetChartHistory(ctx context.Context, rng string) ([]domain.ChartPoint, error) {
	spec, ok := ChartRanges[rng]
	if !ok {
		return nil, domain.NewValidationError("range", "must be one of 1d, 7d, 30d, 90d, 1y")
	}

	key := "charts:bitcoin:" + rng
	if raw, hit := s.cache.Get(ctx, key); hit {
		var points []domain.ChartPoint
		if err := json.Unmarshal(raw, &points); err == nil {
			return points, nil
		}
		s.logger.Warn("discarding corrupt chart cache entry", zap.String("key", key))
	}

	exchanges, err := s.GetCurrentPrices(ctx)
	if err != nil {
		return nil, err
	}
	anchor := exchanges[0].Price

	points := s.generateWalk(anchor, spec.Points, spec.Step)

	if raw, err := json.Marshal(points); err == nil {
		if err := s.cache.Set(ctx, key, raw, chartCacheTTL); err != nil {
			s.logger.Warn("chart cache write failed", zap.Error(err))
		}
	}

	return points, nil
}

// generateWalk walks backwards from the anchor so the newest point matches
// the live price, then returns the series oldest-first.
func (s *ComparisonService) generateWalk(anchor float64, n int, step time.Duration) []domain.ChartPoint {
	now := s.timeNow()
	points := make([]domain.ChartPoint, n)
	price := anchor
	for i := n - 1; i >= 0; i-- {
		points[i] = domain.ChartPoint{
			Timestamp: now.Add(-time.Duration(n-1-i) * step),
			Price:     price,
			Volume:    800_000_000 + s.randFloat()*1_600_000_000,
		}
		price *= 1 + (s.randFloat()-0.5)*0.02
	}
	return points
}

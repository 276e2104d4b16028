package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
	"github.com/bitcompare/bitcompare/internal/infrastructure/cache"
)

// stubPriceSource feeds the comparison layer fixed records.
type stubPriceSource struct {
	records []domain.PriceRecord
	updated time.Time
}

func (s *stubPriceSource) GetPrices(ctx context.Context) []domain.PriceRecord { return s.records }
func (s *stubPriceSource) LastUpdated() time.Time                             { return s.updated }

func newTestComparisonService(records []domain.PriceRecord) *ComparisonService {
	src := &stubPriceSource{
		records: records,
		updated: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	s := NewComparisonService(src, cache.NewMemoryCache(), zap.NewNop())
	s.randFloat = func() float64 { return 0.5 }
	return s
}

func fullRecordSet() []domain.PriceRecord {
	records := make([]domain.PriceRecord, 0, len(domain.CanonicalExchanges))
	base := 107000.0
	for i, ex := range domain.CanonicalExchanges {
		records = append(records, domain.PriceRecord{
			ExchangeName: ex.ID,
			Price:        base + float64(i)*50,
			Spread:       0.2,
		})
	}
	return records
}

func TestComparisonService_AlwaysNineExchanges(t *testing.T) {
	cases := map[string][]domain.PriceRecord{
		"two live records": {
			{ExchangeName: "coinbase", Price: 107100},
			{ExchangeName: "binance", Price: 106900},
		},
		"full set": fullRecordSet(),
		"extra non-canonical records": append(fullRecordSet(),
			domain.PriceRecord{ExchangeName: "okx", Price: 106000},
			domain.PriceRecord{ExchangeName: "bitstamp", Price: 108000},
		),
	}

	for name, records := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestComparisonService(records)
			got, err := s.GetCurrentPrices(context.Background())
			if err != nil {
				t.Fatalf("GetCurrentPrices failed: %v", err)
			}
			if len(got) != 9 {
				t.Fatalf("expected exactly 9 exchanges, got %d", len(got))
			}
		})
	}
}

func TestComparisonService_BestPriceExactlyOne(t *testing.T) {
	s := newTestComparisonService([]domain.PriceRecord{
		{ExchangeName: "coinbase", Price: 107100},
		{ExchangeName: "binance", Price: 106900},
	})

	got, err := s.GetCurrentPrices(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentPrices failed: %v", err)
	}

	bestCount := 0
	for _, ex := range got {
		if ex.IsBestPrice {
			bestCount++
			if ex.ID != "binance" {
				t.Errorf("best price on %s, want binance", ex.ID)
			}
		}
	}
	if bestCount != 1 {
		t.Errorf("isBestPrice set on %d entries, want 1", bestCount)
	}
}

func TestComparisonService_MaxSpreadIsMaxMinusMin(t *testing.T) {
	s := newTestComparisonService(fullRecordSet())

	comparison, err := s.GetPriceComparison(context.Background())
	if err != nil {
		t.Fatalf("GetPriceComparison failed: %v", err)
	}

	// fullRecordSet spans 107000 .. 107000+8*50.
	want := 400.0
	if comparison.MaxSpread != want {
		t.Errorf("maxSpread = %v, want %v (currency units)", comparison.MaxSpread, want)
	}
	if comparison.BestExchange != "coinbase" {
		t.Errorf("bestExchange = %s, want coinbase", comparison.BestExchange)
	}
}

func TestComparisonService_AverageSpreadIsMeanOfSpreadField(t *testing.T) {
	records := []domain.PriceRecord{}
	for i, ex := range domain.CanonicalExchanges {
		records = append(records, domain.PriceRecord{
			ExchangeName: ex.ID,
			Price:        107000,
			Spread:       float64(i + 1), // 1..9, mean 5
		})
	}
	s := newTestComparisonService(records)

	comparison, err := s.GetPriceComparison(context.Background())
	if err != nil {
		t.Fatalf("GetPriceComparison failed: %v", err)
	}
	if comparison.AverageSpread != 5 {
		t.Errorf("averageSpread = %v, want 5 (percentage mean, distinct from maxSpread)", comparison.AverageSpread)
	}
}

func TestComparisonService_NoDataError(t *testing.T) {
	s := newTestComparisonService(nil)

	_, err := s.GetPriceComparison(context.Background())
	if !errors.Is(err, domain.ErrNoPriceData) {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestComparisonService_SyntheticBackfillNearAverage(t *testing.T) {
	s := newTestComparisonService([]domain.PriceRecord{
		{ExchangeName: "coinbase", Price: 107000},
		{ExchangeName: "binance", Price: 107000},
	})

	got, err := s.GetCurrentPrices(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentPrices failed: %v", err)
	}

	for _, ex := range got {
		if ex.ID == "coinbase" || ex.ID == "binance" {
			if ex.Synthetic {
				t.Errorf("%s is live but flagged synthetic", ex.ID)
			}
			continue
		}
		if !ex.Synthetic {
			t.Errorf("%s was backfilled but not flagged synthetic", ex.ID)
		}
		// Zero jitter in tests: backfill lands exactly on the average.
		if ex.Price != 107000 {
			t.Errorf("%s backfill price %v, want average 107000", ex.ID, ex.Price)
		}
	}
}

func TestComparisonService_HistoricalValidation(t *testing.T) {
	s := newTestComparisonService(fullRecordSet())
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.timeNow = func() time.Time { return now }

	var verr *domain.ValidationError

	_, err := s.GetHistoricalComparison(context.Background(), now.Add(time.Hour))
	if !errors.As(err, &verr) {
		t.Errorf("future timestamp: expected validation error, got %v", err)
	}

	_, err = s.GetHistoricalComparison(context.Background(), now.Add(-366*24*time.Hour))
	if !errors.As(err, &verr) {
		t.Errorf("too-old timestamp: expected validation error, got %v", err)
	}

	comparison, err := s.GetHistoricalComparison(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("valid timestamp rejected: %v", err)
	}
	if len(comparison.Exchanges) != 9 {
		t.Errorf("historical comparison has %d exchanges, want 9", len(comparison.Exchanges))
	}
	for _, ex := range comparison.Exchanges {
		if !ex.Synthetic {
			t.Errorf("historical record for %s must be synthetic", ex.ID)
		}
	}
}

func TestComparisonService_ChartHistory(t *testing.T) {
	s := newTestComparisonService(fullRecordSet())

	var verr *domain.ValidationError
	if _, err := s.GetChartHistory(context.Background(), "2w"); !errors.As(err, &verr) {
		t.Errorf("bad range: expected validation error, got %v", err)
	}

	first, err := s.GetChartHistory(context.Background(), "7d")
	if err != nil {
		t.Fatalf("GetChartHistory failed: %v", err)
	}
	if len(first) != ChartRanges["7d"].Points {
		t.Errorf("7d series has %d points, want %d", len(first), ChartRanges["7d"].Points)
	}

	// Second read within the TTL is served from cache: identical series.
	second, err := s.GetChartHistory(context.Background(), "7d")
	if err != nil {
		t.Fatalf("cached GetChartHistory failed: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached series length %d, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].Price != second[i].Price {
			t.Errorf("point %d price differs between cached reads", i)
		}
	}
}

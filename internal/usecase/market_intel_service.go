package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/bitcompare/bitcompare/internal/domain"
)

// arbitrageMinSpreadPct is the gap below which a price difference is noise,
// not an opportunity.
const arbitrageMinSpreadPct = 0.05

// MarketIntelService derives the dashboard widgets: network stats, market
// data, AI sentiment, whale activity, arbitrage. Figures are computed from
// the cached prices where possible and fabricated where no upstream exists.
type MarketIntelService struct {
	prices    PriceSource
	timeNow   func() time.Time
	randFloat func() float64
}

func NewMarketIntelService(prices PriceSource) *MarketIntelService {
	return &MarketIntelService{
		prices:    prices,
		timeNow:   time.Now,
		randFloat: rand.Float64,
	}
}

func (s *MarketIntelService) averagePrice(ctx context.Context) float64 {
	records := s.prices.GetPrices(ctx)
	if len(records) == 0 {
		return BaselinePrice
	}
	var sum float64
	for _, r := range records {
		sum += r.Price
	}
	return sum / float64(len(records))
}

func (s *MarketIntelService) GetNetworkStats(ctx context.Context) *domain.NetworkStats {
	now := s.timeNow()
	return &domain.NetworkStats{
		HashrateEH:      850 + s.randFloat()*150,
		Difficulty:      1.25e14 * (1 + s.randFloat()*0.05),
		BlockHeight:     910000 + int64(now.Unix()%100000)/600,
		MempoolSize:     int64(5000 + s.randFloat()*60000),
		AvgFeeSatVB:     2 + s.randFloat()*40,
		NodesOnline:     int64(21000 + s.randFloat()*2000),
		NextHalvingDays: 950 - int64(now.YearDay()),
		UpdatedAt:       now,
	}
}

func (s *MarketIntelService) GetMarketData(ctx context.Context) *domain.MarketData {
	price := s.averagePrice(ctx)
	supply := 19_800_000.0
	fearGreed := 25 + int(s.randFloat()*55)

	return &domain.MarketData{
		MarketCap:         price * supply,
		Volume24h:         25_000_000_000 + s.randFloat()*30_000_000_000,
		Dominance:         52 + s.randFloat()*8,
		CirculatingSupply: supply,
		FearGreedIndex:    fearGreed,
		FearGreedLabel:    fearGreedLabel(fearGreed),
		UpdatedAt:         s.timeNow(),
	}
}

func fearGreedLabel(index int) string {
	switch {
	case index < 25:
		return "Extreme Fear"
	case index < 45:
		return "Fear"
	case index < 55:
		return "Neutral"
	case index < 75:
		return "Greed"
	default:
		return "Extreme Greed"
	}
}

func (s *MarketIntelService) GetAIIntelligence(ctx context.Context) *domain.AIIntelligence {
	records := s.prices.GetPrices(ctx)

	var changeSum float64
	for _, r := range records {
		changeSum += r.Change24h
	}
	avgChange := 0.0
	if len(records) > 0 {
		avgChange = changeSum / float64(len(records))
	}

	sentiment := "neutral"
	score := 0.5
	if avgChange > 1 {
		sentiment = "bullish"
		score = 0.6 + s.randFloat()*0.3
	} else if avgChange < -1 {
		sentiment = "bearish"
		score = 0.1 + s.randFloat()*0.3
	}

	price := s.averagePrice(ctx)
	return &domain.AIIntelligence{
		Sentiment:      sentiment,
		SentimentScore: score,
		Prediction24h:  price * (1 + avgChange/100 + (s.randFloat()-0.5)*0.02),
		Confidence:     0.55 + s.randFloat()*0.35,
		Signals: []string{
			fmt.Sprintf("24h average change across venues: %+.2f%%", avgChange),
			"Funding rates within normal band",
			"Exchange netflow trending negative",
		},
		UpdatedAt: s.timeNow(),
	}
}

func (s *MarketIntelService) GetWhaleActivity(ctx context.Context) []domain.WhaleTransaction {
	price := s.averagePrice(ctx)
	now := s.timeNow()

	wallets := []string{"unknown wallet", "coinbase cold storage", "binance hot wallet", "bitfinex", "otc desk"}
	txs := make([]domain.WhaleTransaction, 0, 5)
	for i := 0; i < 5; i++ {
		amount := 100 + s.randFloat()*1900
		from := wallets[int(s.randFloat()*float64(len(wallets)))%len(wallets)]
		to := wallets[int(s.randFloat()*float64(len(wallets)))%len(wallets)]
		txs = append(txs, domain.WhaleTransaction{
			TxHash:    fmt.Sprintf("%016x%016x", int64(s.randFloat()*float64(1<<62)), int64(s.randFloat()*float64(1<<62))),
			AmountBTC: amount,
			AmountUSD: amount * price,
			From:      from,
			To:        to,
			Timestamp: now.Add(-time.Duration(s.randFloat()*120) * time.Minute),
		})
	}
	return txs
}

// GetArbitrageOpportunities scans the live per-exchange prices for gaps wide
// enough to publish. Unlike the other widgets this one is real data.
func (s *MarketIntelService) GetArbitrageOpportunities(ctx context.Context) []domain.ArbitrageOpportunity {
	records := s.prices.GetPrices(ctx)
	if len(records) < 2 {
		return nil
	}

	low, high := records[0], records[0]
	for _, r := range records[1:] {
		if r.Price < low.Price {
			low = r
		}
		if r.Price > high.Price {
			high = r
		}
	}

	spread := high.Price - low.Price
	spreadPct := spread / low.Price * 100
	if spreadPct < arbitrageMinSpreadPct {
		return nil
	}

	return []domain.ArbitrageOpportunity{{
		BuyExchange:  low.ExchangeName,
		SellExchange: high.ExchangeName,
		BuyPrice:     low.Price,
		SellPrice:    high.Price,
		SpreadUSD:    spread,
		SpreadPct:    spreadPct,
		DetectedAt:   s.timeNow(),
	}}
}

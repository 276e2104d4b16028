package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bitcompare/bitcompare/internal/domain"
)

const (
	CoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

	// CoinGecko's free tier rate-limits aggressively, so outbound calls are
	// spaced and 429s retried with exponential backoff.
	minRequestSpacing = 1200 * time.Millisecond
	maxRetries        = 3
	fixedRetryDelay   = 500 * time.Millisecond
)

type CoinGeckoAdapter struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	mu       sync.Mutex
	lastCall time.Time

	timeNow func() time.Time
	sleep   func(time.Duration)
}

func NewCoinGeckoAdapter(apiKey, baseURL string) *CoinGeckoAdapter {
	if baseURL == "" {
		baseURL = CoinGeckoBaseURL
	}
	return &CoinGeckoAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		timeNow: time.Now,
		sleep:   time.Sleep,
	}
}

func (c *CoinGeckoAdapter) Name() string { return "coingecko" }

// throttle blocks until at least minRequestSpacing has passed since the
// previous outbound call.
func (c *CoinGeckoAdapter) throttle() {
	c.mu.Lock()
	elapsed := c.timeNow().Sub(c.lastCall)
	if elapsed < minRequestSpacing {
		wait := minRequestSpacing - elapsed
		c.mu.Unlock()
		c.sleep(wait)
		c.mu.Lock()
	}
	c.lastCall = c.timeNow()
	c.mu.Unlock()
}

func (c *CoinGeckoAdapter) sendRequest(ctx context.Context, path string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.throttle()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.sleep(fixedRetryDelay)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			c.sleep(fixedRetryDelay)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("coingecko rate limited: %s", strings.TrimSpace(string(body)))
			// 1s, 2s, 4s
			c.sleep(time.Second << attempt)
		case resp.StatusCode >= 400:
			lastErr = fmt.Errorf("coingecko http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			c.sleep(fixedRetryDelay)
		default:
			return body, nil
		}
	}

	return nil, fmt.Errorf("coingecko request %s failed after %d retries: %w", path, maxRetries, lastErr)
}

// GetPrice returns CoinGecko's aggregate bitcoin spot price in USD.
func (c *CoinGeckoAdapter) GetPrice(ctx context.Context) (*domain.PriceRecord, error) {
	body, err := c.sendRequest(ctx, "/simple/price?ids=bitcoin&vs_currencies=usd&include_24hr_vol=true&include_24hr_change=true")
	if err != nil {
		return nil, err
	}

	var result struct {
		Bitcoin struct {
			USD          float64 `json:"usd"`
			USD24hVol    float64 `json:"usd_24h_vol"`
			USD24hChange float64 `json:"usd_24h_change"`
		} `json:"bitcoin"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if result.Bitcoin.USD == 0 {
		return nil, fmt.Errorf("coingecko returned empty bitcoin price")
	}

	return &domain.PriceRecord{
		ExchangeName: "coingecko",
		Price:        result.Bitcoin.USD,
		Volume24h:    result.Bitcoin.USD24hVol,
		Change24h:    result.Bitcoin.USD24hChange,
		Timestamp:    c.timeNow(),
	}, nil
}

// GetTickers returns per-exchange BTC/USD(T) tickers. Exchange names are
// CoinGecko identifiers; the caller maps them onto the canonical list.
func (c *CoinGeckoAdapter) GetTickers(ctx context.Context) ([]domain.PriceRecord, error) {
	body, err := c.sendRequest(ctx, "/coins/bitcoin/tickers?include_exchange_logo=false&depth=false")
	if err != nil {
		return nil, err
	}

	var result struct {
		Tickers []struct {
			Target string `json:"target"`
			Market struct {
				Name       string `json:"name"`
				Identifier string `json:"identifier"`
			} `json:"market"`
			Last                   float64 `json:"last"`
			Volume                 float64 `json:"volume"`
			BidAskSpreadPercentage float64 `json:"bid_ask_spread_percentage"`
			ConvertedLast          struct {
				USD float64 `json:"usd"`
			} `json:"converted_last"`
		} `json:"tickers"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}

	now := c.timeNow()
	var records []domain.PriceRecord
	for _, t := range result.Tickers {
		if t.Target != "USD" && t.Target != "USDT" {
			continue
		}
		price := t.ConvertedLast.USD
		if price == 0 {
			price = t.Last
		}
		if price == 0 {
			continue
		}
		records = append(records, domain.PriceRecord{
			ExchangeName: t.Market.Identifier,
			Price:        price,
			Volume24h:    t.Volume * price,
			Spread:       t.BidAskSpreadPercentage,
			Timestamp:    now,
		})
	}

	return records, nil
}

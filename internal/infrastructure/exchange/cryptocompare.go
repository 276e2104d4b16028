package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitcompare/bitcompare/internal/domain"
)

const CryptoCompareBaseURL = "https://min-api.cryptocompare.com"

// CryptoCompareAdapter is the secondary price source. It carries no
// throttling: CryptoCompare's limits are generous enough for our cadence.
type CryptoCompareAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeNow func() time.Time
}

func NewCryptoCompareAdapter(apiKey, baseURL string) *CryptoCompareAdapter {
	if baseURL == "" {
		baseURL = CryptoCompareBaseURL
	}
	return &CryptoCompareAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		timeNow: time.Now,
	}
}

func (c *CryptoCompareAdapter) Name() string { return "cryptocompare" }

func (c *CryptoCompareAdapter) sendRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cryptocompare http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func (c *CryptoCompareAdapter) GetPrice(ctx context.Context) (*domain.PriceRecord, error) {
	body, err := c.sendRequest(ctx, "/data/pricemultifull?fsyms=BTC&tsyms=USD")
	if err != nil {
		return nil, err
	}

	var result struct {
		Raw struct {
			BTC struct {
				USD struct {
					Price         float64 `json:"PRICE"`
					Volume24hTo   float64 `json:"TOTALVOLUME24HTO"`
					ChangePct24h  float64 `json:"CHANGEPCT24HOUR"`
					LastUpdateSec int64   `json:"LASTUPDATE"`
				} `json:"USD"`
			} `json:"BTC"`
		} `json:"RAW"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}

	raw := result.Raw.BTC.USD
	if raw.Price == 0 {
		return nil, fmt.Errorf("cryptocompare returned empty bitcoin price")
	}

	ts := c.timeNow()
	if raw.LastUpdateSec > 0 {
		ts = time.Unix(raw.LastUpdateSec, 0)
	}

	return &domain.PriceRecord{
		ExchangeName: "cryptocompare",
		Price:        raw.Price,
		Volume24h:    raw.Volume24hTo,
		Change24h:    raw.ChangePct24h,
		Timestamp:    ts,
	}, nil
}

// GetTickers returns top exchanges trading BTC/USD by volume.
func (c *CryptoCompareAdapter) GetTickers(ctx context.Context) ([]domain.PriceRecord, error) {
	body, err := c.sendRequest(ctx, "/data/top/exchanges?fsym=BTC&tsym=USD&limit=20")
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Exchange  string  `json:"exchange"`
			Price     float64 `json:"price"`
			Volume24h float64 `json:"volume24hTo"`
			Change24h float64 `json:"changePct24Hour"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}

	now := c.timeNow()
	var records []domain.PriceRecord
	for _, d := range result.Data {
		if d.Price == 0 {
			continue
		}
		records = append(records, domain.PriceRecord{
			ExchangeName: strings.ToLower(d.Exchange),
			Price:        d.Price,
			Volume24h:    d.Volume24h,
			Change24h:    d.Change24h,
			Timestamp:    now,
		})
	}

	return records, nil
}

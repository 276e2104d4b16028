package domain

import "time"

// PriceRecord is the latest known state of one exchange. Records are transient:
// they live in memory only and are overwritten on every refresh cycle.
type PriceRecord struct {
	ExchangeName string    `json:"exchangeName"`
	Price        float64   `json:"price"`
	Volume24h    float64   `json:"volume24h"`
	Change24h    float64   `json:"change24h"`
	Spread       float64   `json:"spread"`
	Synthetic    bool      `json:"synthetic"`
	Timestamp    time.Time `json:"timestamp"`
}

// ExchangeDescriptor is a static entry in the canonical exchange list.
type ExchangeDescriptor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

// CanonicalExchanges is the fixed set of venues shown to clients, in display
// order. The comparison layer guarantees its output always has exactly this
// many entries.
var CanonicalExchanges = []ExchangeDescriptor{
	{ID: "coinbase", DisplayName: "Coinbase", Color: "#0052FF"},
	{ID: "binance", DisplayName: "Binance", Color: "#F3BA2F"},
	{ID: "kraken", DisplayName: "Kraken", Color: "#5741D9"},
	{ID: "robinhood", DisplayName: "Robinhood", Color: "#00C805"},
	{ID: "crypto.com", DisplayName: "Crypto.com", Color: "#003CDA"},
	{ID: "gemini", DisplayName: "Gemini", Color: "#00DCFA"},
	{ID: "river", DisplayName: "River", Color: "#0F5132"},
	{ID: "bitfinex", DisplayName: "Bitfinex", Color: "#16B157"},
	{ID: "strike", DisplayName: "Strike", Color: "#000000"},
}

// ExchangePriceData is one slot in the nine-card comparison view.
type ExchangePriceData struct {
	ExchangeDescriptor
	Price       float64   `json:"price"`
	Volume24h   float64   `json:"volume24h"`
	Change24h   float64   `json:"change24h"`
	Spread      float64   `json:"spread"`
	Synthetic   bool      `json:"synthetic"`
	IsBestPrice bool      `json:"isBestPrice"`
	Timestamp   time.Time `json:"timestamp"`
}

// PriceComparison is recomputed on every read.
//
// MaxSpread and AverageSpread are two different metrics that happen to share a
// name: MaxSpread is max(price)-min(price) in dollars across the venues,
// AverageSpread is the mean of the per-venue bid/ask spread percentages.
type PriceComparison struct {
	Exchanges     []ExchangePriceData `json:"exchanges"`
	BestExchange  string              `json:"bestExchange"`
	MaxSpread     float64             `json:"maxSpread"`
	AverageSpread float64             `json:"averageSpread"`
	LastUpdated   time.Time           `json:"lastUpdated"`
}

// ChartPoint is one sample in a price history series.
type ChartPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

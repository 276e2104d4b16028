package domain

import "time"

// NetworkStats is a snapshot of Bitcoin network health shown on the dashboard.
type NetworkStats struct {
	HashrateEH      float64   `json:"hashrateEH"`
	Difficulty      float64   `json:"difficulty"`
	BlockHeight     int64     `json:"blockHeight"`
	MempoolSize     int64     `json:"mempoolSize"`
	AvgFeeSatVB     float64   `json:"avgFeeSatVB"`
	NodesOnline     int64     `json:"nodesOnline"`
	NextHalvingDays int64     `json:"nextHalvingDays"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type MarketData struct {
	MarketCap         float64   `json:"marketCap"`
	Volume24h         float64   `json:"volume24h"`
	Dominance         float64   `json:"dominance"`
	CirculatingSupply float64   `json:"circulatingSupply"`
	FearGreedIndex    int       `json:"fearGreedIndex"`
	FearGreedLabel    string    `json:"fearGreedLabel"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// AIIntelligence backs the "AI intelligence" widgets. Values are heuristic,
// derived from cached prices where possible and fabricated otherwise.
type AIIntelligence struct {
	Sentiment      string    `json:"sentiment"`
	SentimentScore float64   `json:"sentimentScore"`
	Prediction24h  float64   `json:"prediction24h"`
	Confidence     float64   `json:"confidence"`
	Signals        []string  `json:"signals"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type WhaleTransaction struct {
	TxHash    string    `json:"txHash"`
	AmountBTC float64   `json:"amountBTC"`
	AmountUSD float64   `json:"amountUSD"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// ArbitrageOpportunity is a price gap between two tracked venues large enough
// to be worth showing.
type ArbitrageOpportunity struct {
	BuyExchange  string    `json:"buyExchange"`
	SellExchange string    `json:"sellExchange"`
	BuyPrice     float64   `json:"buyPrice"`
	SellPrice    float64   `json:"sellPrice"`
	SpreadUSD    float64   `json:"spreadUSD"`
	SpreadPct    float64   `json:"spreadPct"`
	DetectedAt   time.Time `json:"detectedAt"`
}

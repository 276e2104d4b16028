package domain

import "context"

// MarketDataProvider is an upstream market-data API (CoinGecko, CryptoCompare).
type MarketDataProvider interface {
	Name() string
	// GetPrice returns the provider's aggregate bitcoin spot price.
	GetPrice(ctx context.Context) (*PriceRecord, error)
	// GetTickers returns per-exchange bitcoin tickers, keyed by the provider's
	// own exchange naming.
	GetTickers(ctx context.Context) ([]PriceRecord, error)
}

// NewsRepository stores articles. Insertion deduplicates by exact title match:
// saving an article whose title already exists returns the stored original.
type NewsRepository interface {
	SaveArticle(ctx context.Context, article *NewsArticle) (*NewsArticle, error)
	GetArticle(ctx context.Context, id int64) (*NewsArticle, error)
	ListArticles(ctx context.Context, limit int) ([]*NewsArticle, error)
	IncrementViews(ctx context.Context, id int64) error
	IncrementShares(ctx context.Context, id int64) error
}

// SubscriptionRepository stores newsletter subscriptions.
type SubscriptionRepository interface {
	SaveSubscription(ctx context.Context, sub *NewsletterSubscription) error
	// GetSubscription returns ErrNotFound when the email has never subscribed.
	GetSubscription(ctx context.Context, email string) (*NewsletterSubscription, error)
	SetSubscriptionActive(ctx context.Context, email string, active bool) error
}

// AlertRepository stores price alerts.
type AlertRepository interface {
	SaveAlert(ctx context.Context, alert *PriceAlert) error
	ListAlertsByEmail(ctx context.Context, email string) ([]*PriceAlert, error)
	ListActiveAlerts(ctx context.Context) ([]*PriceAlert, error)
	MarkAlertTriggered(ctx context.Context, id int64) error
}

// Mailer sends outbound email. Callers treat send failures as log-only.
type Mailer interface {
	SendWelcome(ctx context.Context, email string) error
	SendAlertTriggered(ctx context.Context, alert *PriceAlert, currentPrice float64) error
}

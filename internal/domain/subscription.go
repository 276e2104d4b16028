package domain

import "time"

type NewsletterSubscription struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Active       bool      `json:"active"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// AlertType says which side of the target price triggers the alert.
type AlertType string

const (
	AlertAbove AlertType = "above"
	AlertBelow AlertType = "below"
)

type PriceAlert struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	TargetPrice float64   `json:"targetPrice"`
	Type        AlertType `json:"type"`
	Active      bool      `json:"active"`
	Triggered   bool      `json:"triggered"`
	CreatedAt   time.Time `json:"createdAt"`
}

package domain

import "time"

// NewsImpact classifies how much an article is expected to move the market.
type NewsImpact string

const (
	ImpactHigh   NewsImpact = "HIGH"
	ImpactMedium NewsImpact = "MEDIUM"
	ImpactLow    NewsImpact = "LOW"
)

type NewsArticle struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Author      string     `json:"author"`
	PublishedAt time.Time  `json:"publishedAt"`
	Impact      NewsImpact `json:"impact"`
	Tags        []string   `json:"tags"`
	Views       int64      `json:"views"`
	Shares      int64      `json:"shares"`
}

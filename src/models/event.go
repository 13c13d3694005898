package models

import "time"

const (
	EventCategoryMacro = "macro"
	EventCategoryNews  = "news"
)

// MEvent is one row of the flat event table (macro releases, news items).
type MEvent struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"ts"`
	Source            string    `json:"source"`
	Category          string    `json:"category"`
	Importance        int       `json:"importance"`
	Weight            float64   `json:"weight"`
	Sentiment         float64   `json:"sentiment"`
	WeightedSentiment float64   `json:"sentiment_w"`
	Event             string    `json:"event"`
	URL               string    `json:"url"`
}

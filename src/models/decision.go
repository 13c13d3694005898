package models

import "time"

const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
	DirectionHold = "hold"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	ScorerModel = "model"
	ScorerRules = "rules"
)

// MDecision is a directional call for the latest feature row. Not persisted.
type MDecision struct {
	Pair       string    `json:"pair"`
	Timeframe  string    `json:"timeframe"`
	Direction  string    `json:"direction"`
	Confidence float64   `json:"confidence"`
	Factors    []string  `json:"key_factors"`
	Analysis   string    `json:"analysis"`
	RiskLevel  string    `json:"risk_level"`
	Path       string    `json:"path"` // "model" or "rules"
	BarTime    time.Time `json:"bar_time"`
	Close      float64   `json:"close"`
	CreatedAt  time.Time `json:"created_at"`
}

// MDecisionUpdate is pushed to websocket subscribers.
type MDecisionUpdate struct {
	Type     string    `json:"type"` // "INITIAL" or "UPDATE"
	Decision MDecision `json:"decision"`
	Text     string    `json:"text,omitempty"`
}

// MSubscribeCommand for client messages
type MSubscribeCommand struct {
	Command string   `json:"command"`
	Pairs   []string `json:"pairs"`
}

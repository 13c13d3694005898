package models

import "time"

// MBar represents an aggregated candle for one bucket of a timeframe.
// Timestamp is the bucket start (UTC).
type MBar struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"vol"`
	Spread    float64   `json:"spread"` // mean spread, NaN when the source had none
}

// BarColumns is the column order of every bar partition.
var BarColumns = []string{"ts", "open", "high", "low", "close", "vol", "spread"}

// RequiredBarColumns must be present in any bar input.
var RequiredBarColumns = []string{"open", "high", "low", "close"}

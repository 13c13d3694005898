package models

import "time"

// MTick is a single bid/ask quote update decoded from an hourly tick buffer.
type MTick struct {
	Timestamp time.Time `json:"ts"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	BidVolume float64   `json:"bid_vol"`
	AskVolume float64   `json:"ask_vol"`
}

// Mid returns (bid+ask)/2.
func (t MTick) Mid() float64 {
	return (t.Bid + t.Ask) / 2.0
}

// Spread returns ask-bid.
func (t MTick) Spread() float64 {
	return t.Ask - t.Bid
}

// Volume returns bid+ask volume.
func (t MTick) Volume() float64 {
	return t.BidVolume + t.AskVolume
}

// MDownloadStats counts the outcome of a tick download run.
type MDownloadStats struct {
	Pair    string `json:"pair"`
	OK      int    `json:"ok_hours"`
	Skipped int    `json:"skipped_hours"` // already on disk
	Missing int    `json:"missing_hours"` // 404 or empty body
	Failed  int    `json:"failed_hours"`
}

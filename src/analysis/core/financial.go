package core

import (
	"math"
	"time"

	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------

// ReduceTicks builds one bar from ticks already sorted by time. Prices are mids.
func ReduceTicks(start time.Time, ticks []models.MTick) models.MBar {
	bar := models.MBar{
		Timestamp: start,
		Open:      ticks[0].Mid(),
		Close:     ticks[len(ticks)-1].Mid(),
		High:      math.Inf(-1),
		Low:       math.Inf(1),
	}

	spreadSum := 0.0
	for _, t := range ticks {
		mid := t.Mid()
		bar.High = math.Max(bar.High, mid)
		bar.Low = math.Min(bar.Low, mid)
		bar.Volume += t.Volume()
		spreadSum += t.Spread()
	}
	bar.Spread = spreadSum / float64(len(ticks))
	return bar
}

// -----------------------------------------------------------------------------

// ReduceBars merges finer bars, sorted by time, into one coarser bar.
// Spread is the mean of the defined input spreads, NaN when none is defined.
func ReduceBars(start time.Time, bars []models.MBar) models.MBar {
	out := models.MBar{
		Timestamp: start,
		Open:      bars[0].Open,
		Close:     bars[len(bars)-1].Close,
		High:      math.Inf(-1),
		Low:       math.Inf(1),
	}

	spreads := make([]float64, 0, len(bars))
	for _, b := range bars {
		out.High = math.Max(out.High, b.High)
		out.Low = math.Min(out.Low, b.Low)
		out.Volume += b.Volume
		spreads = append(spreads, b.Spread)
	}
	out.Spread = NanMean(spreads)
	return out
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates percentage change.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

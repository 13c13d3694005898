package features

import (
	"fmt"
	"math"
	"time"

	"fx-agent/src/analysis"
	"fx-agent/src/events"
	"fx-agent/src/logger"
	"fx-agent/src/models"
	"fx-agent/src/utils"
)

// Windows of the moving average and volatility columns.
var Windows = []int{5, 20, 60}

const (
	RSIPeriod      = 14
	ATRPeriod      = 14
	SpreadMAWindow = 60
)

// -----------------------------------------------------------------------------

// Engine computes the per-bar feature table.
type Engine struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Aggregator *events.Aggregator
	Sessions   *utils.SessionScheduler
}

// -----------------------------------------------------------------------------

func NewEngine(cfg *models.MConfig, log *logger.Logger) *Engine {
	return &Engine{
		Config:     cfg,
		Logger:     log,
		Aggregator: events.NewAggregator(cfg, log),
		Sessions:   utils.NewSessionScheduler(log),
	}
}

// -----------------------------------------------------------------------------

// Build returns one row per distinct bar timestamp. The column set depends on
// the pair and configuration only, never on how much data there is.
func (e *Engine) Build(pair, tf string, bars []models.MBar, table *events.Table) (*models.MFeatureTable, error) {
	bars = analysis.SortBars(bars)
	n := len(bars)

	index := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	vol := make([]float64, n)
	spread := make([]float64, n)
	for i, b := range bars {
		index[i] = b.Timestamp.UTC()
		open[i], high[i], low[i], closes[i] = b.Open, b.High, b.Low, b.Close
		vol[i] = b.Volume
		spread[i] = b.Spread
	}

	out := models.NewFeatureTable(index)
	out.Set("open", open)
	out.Set("high", high)
	out.Set("low", low)
	out.Set("close", closes)
	out.Set("vol", vol)

	logret := LogReturns(closes)
	out.Set("logret_1", logret)
	for _, w := range Windows {
		out.Set(fmt.Sprintf("ma_%d", w), RollingMean(closes, w))
		out.Set(fmt.Sprintf("vol_%d", w), RollingStd(logret, w))
	}
	out.Set(fmt.Sprintf("rsi_%d", RSIPeriod), RSI(closes, RSIPeriod))
	out.Set(fmt.Sprintf("atr_%d", ATRPeriod), ATR(high, low, closes, ATRPeriod))

	hours := make([]float64, n)
	dows := make([]float64, n)
	for i, ts := range index {
		hours[i] = float64(ts.Hour())
		dows[i] = float64((int(ts.Weekday()) + 6) % 7) // Monday = 0
	}
	out.Set("hour_utc", hours)
	out.Set("dow_utc", dows)

	if !hasDefined(spread) && n > 0 {
		e.Logger.Warning("No spread data in %s %s bars", pair, tf)
	}
	out.Set("spread", spread)
	out.Set(fmt.Sprintf("spread_ma_%d", SpreadMAWindow), RollingMean(spread, SpreadMAWindow))

	if e.Config != nil && e.Config.Features.Sessions {
		cols, flags := e.Sessions.SessionFlags(pair, index)
		for _, c := range cols {
			out.Set(c, flags[c])
		}
	}

	evFeatures, err := e.Aggregator.Features(index, tf, table, e.windows())
	if err != nil {
		return nil, fmt.Errorf("failed to build event features for %s %s: %w", pair, tf, err)
	}
	for _, c := range evFeatures.Columns {
		out.Set(c, evFeatures.Values[c])
	}

	return out, nil
}

// -----------------------------------------------------------------------------

func (e *Engine) windows() []string {
	if e.Config == nil || len(e.Config.Features.EventWindows) == 0 {
		return []string{"15T", "1H", "6H", "24H", "72H", "168H"}
	}
	return e.Config.Features.EventWindows
}

func hasDefined(x []float64) bool {
	for _, v := range x {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

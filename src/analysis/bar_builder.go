package analysis

import (
	"fmt"
	"sort"
	"time"

	"fx-agent/src/analysis/core"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"
)

// BarBuilder aggregates ticks into minute bars and resamples bars up the ladder.
type BarBuilder struct {
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBarBuilder(cfg *models.MConfig, log *logger.Logger) *BarBuilder {
	return &BarBuilder{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

// bucketIndices groups sorted timestamps into consecutive runs sharing a bucket.
// Only non-empty buckets are returned.
func bucketIndices(timestamps []time.Time, tf string) ([]struct {
	Start time.Time
	From  int
	To    int
}, error) {
	var groups []struct {
		Start time.Time
		From  int
		To    int
	}

	for i := 0; i < len(timestamps); {
		start, err := BucketStart(tf, timestamps[i])
		if err != nil {
			return nil, err
		}
		next, err := nextBucket(tf, start)
		if err != nil {
			return nil, err
		}

		// first index at or past the next bucket boundary
		j := i + sort.Search(len(timestamps)-i, func(k int) bool {
			return !timestamps[i+k].Before(next)
		})

		groups = append(groups, struct {
			Start time.Time
			From  int
			To    int
		}{Start: start, From: i, To: j})
		i = j
	}
	return groups, nil
}

// nextBucket returns the start of the bucket following start.
func nextBucket(tf string, start time.Time) (time.Time, error) {
	if d := Period(tf); d > 0 {
		return start.Add(d), nil
	}
	switch tf {
	case TimeframeW1:
		return start.AddDate(0, 0, 7), nil
	case TimeframeMonthly:
		return start.AddDate(0, 1, 0), nil
	case TimeframeSemester:
		return start.AddDate(0, 6, 0), nil
	}
	return time.Time{}, fmt.Errorf("unknown timeframe %q", tf)
}

// -----------------------------------------------------------------------------

// TicksToMinuteBars sorts ticks by timestamp and aggregates mid prices into
// 1-minute bars. Minutes without ticks produce no bar.
func (b *BarBuilder) TicksToMinuteBars(ticks []models.MTick) []models.MBar {
	if len(ticks) == 0 {
		return []models.MBar{}
	}

	sorted := make([]models.MTick, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool {
		return tickLess(sorted[i], sorted[j])
	})

	timestamps := make([]time.Time, len(sorted))
	for i, t := range sorted {
		timestamps[i] = t.Timestamp.UTC()
	}

	groups, _ := bucketIndices(timestamps, TimeframeM1)
	bars := make([]models.MBar, 0, len(groups))
	for _, g := range groups {
		bars = append(bars, core.ReduceTicks(g.Start, sorted[g.From:g.To]))
	}
	return bars
}

// tickLess orders ticks by timestamp, then by price and volume, so ticks that
// share a millisecond always land in the same order.
func tickLess(a, b models.MTick) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.Bid != b.Bid {
		return a.Bid < b.Bid
	}
	if a.Ask != b.Ask {
		return a.Ask < b.Ask
	}
	if a.BidVolume != b.BidVolume {
		return a.BidVolume < b.BidVolume
	}
	return a.AskVolume < b.AskVolume
}

// -----------------------------------------------------------------------------

// Resample reduces bars into tf buckets. Input is sorted and de-duplicated by
// timestamp first (the last bar for a timestamp wins).
func (b *BarBuilder) Resample(bars []models.MBar, tf string) ([]models.MBar, error) {
	if !IsTimeframe(tf) {
		return nil, fmt.Errorf("unknown timeframe %q", tf)
	}

	clean := SortBars(bars)
	if len(clean) == 0 {
		return []models.MBar{}, nil
	}

	timestamps := make([]time.Time, len(clean))
	for i, bar := range clean {
		timestamps[i] = bar.Timestamp
	}

	groups, err := bucketIndices(timestamps, tf)
	if err != nil {
		return nil, err
	}

	out := make([]models.MBar, 0, len(groups))
	for _, g := range groups {
		out = append(out, core.ReduceBars(g.Start, clean[g.From:g.To]))
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// BuildLadder derives every requested timeframe from minute bars following
// Ladder. 6M is always built from 1M and 1M from D1, so the intermediate
// timeframes are built (and returned) whenever a later one is asked for.
// Timeframes that produce no bars are logged and left out of the result.
func (b *BarBuilder) BuildLadder(pair string, minute []models.MBar, tfs []string) (map[string][]models.MBar, error) {
	want := make(map[string]bool, len(tfs))
	for _, tf := range tfs {
		if !IsTimeframe(tf) {
			return nil, fmt.Errorf("unknown timeframe %q", tf)
		}
		want[tf] = true
	}
	if want[TimeframeSemester] {
		want[TimeframeMonthly] = true
	}
	if want[TimeframeMonthly] {
		want[TimeframeD1] = true
	}

	built := map[string][]models.MBar{TimeframeM1: SortBars(minute)}
	out := make(map[string][]models.MBar)

	for _, step := range Ladder {
		if !want[step.Timeframe] {
			continue
		}
		src := built[step.Source]
		if len(src) == 0 {
			b.Logger.Warning("No %s bars for %s, skipping %s", step.Source, pair, step.Timeframe)
			continue
		}

		bars, err := b.Resample(src, step.Timeframe)
		if err != nil {
			return nil, fmt.Errorf("failed to resample %s to %s: %w", pair, step.Timeframe, err)
		}
		if len(bars) == 0 {
			b.Logger.Warning("Resampling %s to %s produced no bars", pair, step.Timeframe)
			continue
		}

		built[step.Timeframe] = bars
		out[step.Timeframe] = bars
		metrics.BarsBuilt.WithLabelValues(pair, step.Timeframe).Add(float64(len(bars)))
		b.Logger.Debug("Built %d %s bars for %s", len(bars), step.Timeframe, pair)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// SortBars returns bars sorted by timestamp with duplicates removed (last wins).
func SortBars(bars []models.MBar) []models.MBar {
	sorted := make([]models.MBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:0]
	for _, bar := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(bar.Timestamp) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	return out
}

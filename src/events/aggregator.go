package events

import (
	"fmt"
	"time"

	"fx-agent/src/analysis"
	"fx-agent/src/config"
	"fx-agent/src/logger"
	"fx-agent/src/models"
)

// Prefixes in column order.
var Prefixes = []struct {
	Prefix   string
	Category string
}{
	{"news", models.EventCategoryNews},
	{"macro", models.EventCategoryMacro},
}

// -----------------------------------------------------------------------------

// Aggregator turns the event table into rolling count and sentiment columns
// aligned to a bar index.
type Aggregator struct {
	Config *models.MConfig
	Logger *logger.Logger
}

func NewAggregator(cfg *models.MConfig, log *logger.Logger) *Aggregator {
	return &Aggregator{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

// CountColumn and SentimentColumn name the rolling columns, e.g. macro_cnt_24H.
func CountColumn(prefix, window string) string     { return fmt.Sprintf("%s_cnt_%s", prefix, window) }
func SentimentColumn(prefix, window string) string { return fmt.Sprintf("%s_sent_%s", prefix, window) }

// -----------------------------------------------------------------------------

// Features builds <prefix>_cnt_<w> and <prefix>_sent_<w> for every prefix and
// window over index, which must be sorted ascending. Every column is present
// even when there are no events.
func (a *Aggregator) Features(index []time.Time, tf string, table *Table, windows []string) (*models.MFeatureTable, error) {
	out := models.NewFeatureTable(index)
	for _, p := range Prefixes {
		var evs []models.MEvent
		if table != nil {
			evs = table.ByCategory(p.Category)
		}
		if err := a.Rolling(out, tf, evs, p.Prefix, windows); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Rolling adds the columns of one prefix to out. Events are floored to the
// bucket of tf, binned, reindexed onto out.Timestamps (bins off the index are
// dropped) and summed over the trailing window (t-w, t].
func (a *Aggregator) Rolling(out *models.MFeatureTable, tf string, evs []models.MEvent, prefix string, windows []string) error {
	index := out.Timestamps
	n := len(index)

	cnt := make([]float64, n)
	sum := make([]float64, n)

	if len(evs) > 0 && n > 0 {
		pos := make(map[int64]int, n)
		for i, ts := range index {
			pos[ts.UTC().UnixNano()] = i
		}

		dropped := 0
		for _, e := range evs {
			bin, err := analysis.BucketStart(tf, e.Timestamp)
			if err != nil {
				return fmt.Errorf("failed to bin events: %w", err)
			}
			i, ok := pos[bin.UnixNano()]
			if !ok {
				dropped++
				continue
			}
			cnt[i]++
			sum[i] += e.WeightedSentiment
		}
		if dropped > 0 {
			a.Logger.Debug("%d %s events fall outside the bar index", dropped, prefix)
		}
	}

	for _, w := range windows {
		width, err := config.ParseWindow(w)
		if err != nil {
			return err
		}
		out.Set(CountColumn(prefix, w), trailingSum(index, cnt, width))
		out.Set(SentimentColumn(prefix, w), trailingSum(index, sum, width))
	}
	return nil
}

// -----------------------------------------------------------------------------

// trailingSum sums values whose timestamp lies in (t-width, t] for each t.
func trailingSum(index []time.Time, values []float64, width time.Duration) []float64 {
	out := make([]float64, len(values))
	acc := 0.0
	left := 0
	for i, ts := range index {
		acc += values[i]
		cutoff := ts.Add(-width)
		for left <= i && !index[left].After(cutoff) {
			acc -= values[left]
			left++
		}
		out[i] = acc
	}
	return out
}

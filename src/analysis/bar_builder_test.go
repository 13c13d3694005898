package analysis

import (
	"math"
	"testing"
	"time"

	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t10 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newBuilder() *BarBuilder {
	return NewBarBuilder(nil, logger.NewNopLogger())
}

func tick(offset time.Duration, bid, ask float64) models.MTick {
	return models.MTick{Timestamp: t10.Add(offset), Bid: bid, Ask: ask, BidVolume: 1, AskVolume: 2}
}

func TestMinuteBarScenario(t *testing.T) {
	assert := assert.New(t)

	bars := newBuilder().TicksToMinuteBars([]models.MTick{
		tick(0, 109.500, 109.520),
		tick(30*time.Second, 109.510, 109.530),
	})
	require.Len(t, bars, 1)

	b := bars[0]
	assert.Equal(t10, b.Timestamp)
	assert.InDelta(109.510, b.Open, 1e-9)
	assert.InDelta(109.520, b.Close, 1e-9)
	assert.InDelta(109.520, b.High, 1e-9)
	assert.InDelta(109.510, b.Low, 1e-9)
	assert.InDelta(0.020, b.Spread, 1e-9)
	assert.Equal(6.0, b.Volume)
}

func TestMinuteBarsAreSparseAndSorted(t *testing.T) {
	bars := newBuilder().TicksToMinuteBars([]models.MTick{
		tick(5*time.Minute+10*time.Second, 109.6, 109.62),
		tick(0, 109.5, 109.52),
		tick(5*time.Minute, 109.7, 109.72),
	})
	require.Len(t, bars, 2)
	assert.Equal(t, t10, bars[0].Timestamp)
	assert.Equal(t, t10.Add(5*time.Minute), bars[1].Timestamp)
	assert.InDelta(t, 109.71, bars[1].Open, 1e-9)
	assert.InDelta(t, 109.61, bars[1].Close, 1e-9)
}

func TestMinuteBarIgnoresDecodeOrder(t *testing.T) {
	a := tick(10*time.Second, 109.50, 109.52)
	b := tick(20*time.Second, 109.40, 109.42)
	c := tick(40*time.Second, 109.60, 109.62)

	first := newBuilder().TicksToMinuteBars([]models.MTick{a, b, c})
	second := newBuilder().TicksToMinuteBars([]models.MTick{c, a, b})
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].Open, second[0].Open)
	assert.Equal(t, first[0].High, second[0].High)
	assert.Equal(t, first[0].Low, second[0].Low)
	assert.Equal(t, first[0].Close, second[0].Close)
}

func TestMinuteBarSameOffsetIgnoresDecodeOrder(t *testing.T) {
	a := tick(10*time.Second, 109.50, 109.52)
	b := tick(10*time.Second, 109.40, 109.42)

	first := newBuilder().TicksToMinuteBars([]models.MTick{a, b})
	second := newBuilder().TicksToMinuteBars([]models.MTick{b, a})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0], second[0])
	assert.InDelta(t, 109.41, first[0].Open, 1e-9)
	assert.InDelta(t, 109.51, first[0].Close, 1e-9)
}

func TestResampleMatchesDirectAggregation(t *testing.T) {
	var ticks []models.MTick
	for i := 0; i < 240; i++ {
		p := 109.5 + 0.01*math.Sin(float64(i)/7)
		ticks = append(ticks, tick(time.Duration(i)*15*time.Second, p, p+0.02))
	}

	b := newBuilder()
	minute := b.TicksToMinuteBars(ticks)
	hourly, err := b.Resample(minute, TimeframeH1)
	require.NoError(t, err)
	require.Len(t, hourly, 1)

	direct, err := b.Resample(b.TicksToMinuteBars(ticks), TimeframeM1)
	require.NoError(t, err)
	require.Len(t, direct, 60)

	sorted := b.TicksToMinuteBars(ticks)
	assert.Equal(t, sorted[0].Open, hourly[0].Open)
	assert.Equal(t, sorted[len(sorted)-1].Close, hourly[0].Close)

	hi, lo := math.Inf(-1), math.Inf(1)
	for _, tk := range ticks {
		hi = math.Max(hi, tk.Mid())
		lo = math.Min(lo, tk.Mid())
	}
	assert.Equal(t, hi, hourly[0].High)
	assert.Equal(t, lo, hourly[0].Low)
	assert.InDelta(t, 240*3.0, hourly[0].Volume, 1e-9)
}

func TestResampleUnknownTimeframe(t *testing.T) {
	_, err := newBuilder().Resample(nil, "M7")
	assert.Error(t, err)
}

func TestBuildLadder(t *testing.T) {
	assert := assert.New(t)

	var minute []models.MBar
	start := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC) // Friday
	for i := 0; i < 5*24*60; i += 30 {
		ts := start.Add(time.Duration(i) * time.Minute)
		minute = append(minute, models.MBar{Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1, Spread: 0.1})
	}

	out, err := newBuilder().BuildLadder("EURUSD", minute, []string{TimeframeH4, TimeframeW1, TimeframeSemester})
	require.NoError(t, err)

	assert.Len(out[TimeframeH4], 5*6)
	assert.Len(out[TimeframeD1], 5)
	assert.Len(out[TimeframeMonthly], 2)
	require.Len(t, out[TimeframeSemester], 2)
	assert.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), out[TimeframeSemester][0].Timestamp)
	assert.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), out[TimeframeSemester][1].Timestamp)

	require.Len(t, out[TimeframeW1], 2)
	assert.Equal(time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC), out[TimeframeW1][0].Timestamp)
	assert.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), out[TimeframeW1][1].Timestamp)
	assert.InDelta(0.1, out[TimeframeW1][0].Spread, 1e-12)

	_, ok := out[TimeframeM5]
	assert.False(ok)
}

func TestBuildLadderEmptyInput(t *testing.T) {
	out, err := newBuilder().BuildLadder("EURUSD", nil, []string{TimeframeH1})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSortBarsLastWins(t *testing.T) {
	bars := SortBars([]models.MBar{
		{Timestamp: t10.Add(time.Minute), Close: 2},
		{Timestamp: t10, Close: 1},
		{Timestamp: t10.Add(time.Minute), Close: 3},
	})
	require.Len(t, bars, 2)
	assert.Equal(t, 3.0, bars[1].Close)
}

func TestBucketStart(t *testing.T) {
	ts := time.Date(2024, 8, 15, 13, 47, 12, 0, time.UTC) // Thursday

	cases := map[string]time.Time{
		TimeframeM5:       time.Date(2024, 8, 15, 13, 45, 0, 0, time.UTC),
		TimeframeM15:      time.Date(2024, 8, 15, 13, 45, 0, 0, time.UTC),
		TimeframeH4:       time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC),
		TimeframeD1:       time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC),
		TimeframeW1:       time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC),
		TimeframeMonthly:  time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		TimeframeSemester: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	for tf, want := range cases {
		got, err := BucketStart(tf, ts)
		require.NoError(t, err, tf)
		assert.Equal(t, want, got, tf)
	}

	sunday := time.Date(2024, 8, 18, 23, 0, 0, 0, time.UTC)
	got, _ := BucketStart(TimeframeW1, sunday)
	assert.Equal(t, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), got)

	_, err := BucketStart("2W", ts)
	assert.Error(t, err)
}

package analysis

import (
	"fmt"
	"time"
)

const (
	TimeframeM1       = "M1"
	TimeframeM5       = "M5"
	TimeframeM15      = "M15"
	TimeframeH1       = "H1"
	TimeframeH4       = "H4"
	TimeframeD1       = "D1"
	TimeframeW1       = "W1"
	TimeframeMonthly  = "1M"
	TimeframeSemester = "6M"
)

// fixedPeriods holds timeframes whose buckets are an epoch-aligned multiple of a fixed duration.
var fixedPeriods = map[string]time.Duration{
	TimeframeM1:  time.Minute,
	TimeframeM5:  5 * time.Minute,
	TimeframeM15: 15 * time.Minute,
	TimeframeH1:  time.Hour,
	TimeframeH4:  4 * time.Hour,
	TimeframeD1:  24 * time.Hour,
}

// Ladder is the build order. Each entry is resampled from its Source.
var Ladder = []struct {
	Timeframe string
	Source    string
}{
	{TimeframeM5, TimeframeM1},
	{TimeframeM15, TimeframeM1},
	{TimeframeH1, TimeframeM1},
	{TimeframeH4, TimeframeM1},
	{TimeframeD1, TimeframeM1},
	{TimeframeW1, TimeframeM1},
	{TimeframeMonthly, TimeframeD1},
	{TimeframeSemester, TimeframeMonthly},
}

// -----------------------------------------------------------------------------

// IsTimeframe reports whether tf is a known timeframe name.
func IsTimeframe(tf string) bool {
	if _, ok := fixedPeriods[tf]; ok {
		return true
	}
	return tf == TimeframeW1 || tf == TimeframeMonthly || tf == TimeframeSemester
}

// -----------------------------------------------------------------------------

// BucketStart returns the calendar-aligned start of the bucket containing ts.
// Weeks start Monday 00:00 UTC, months on the 1st, semesters on Jan 1 and Jul 1.
func BucketStart(tf string, ts time.Time) (time.Time, error) {
	ts = ts.UTC()
	if d, ok := fixedPeriods[tf]; ok {
		return ts.Truncate(d), nil
	}

	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	switch tf {
	case TimeframeW1:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case TimeframeMonthly:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case TimeframeSemester:
		m := time.January
		if ts.Month() >= time.July {
			m = time.July
		}
		return time.Date(ts.Year(), m, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unknown timeframe %q", tf)
}

// -----------------------------------------------------------------------------

// Period returns the fixed bucket width of tf, or 0 for calendar timeframes.
func Period(tf string) time.Duration {
	return fixedPeriods[tf]
}

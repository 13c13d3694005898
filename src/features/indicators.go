package features

import (
	"math"

	"fx-agent/src/analysis/core"
)

// All indicators return a slice of the input length. Positions without enough
// history are NaN.

// -----------------------------------------------------------------------------

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// -----------------------------------------------------------------------------

// LogReturns returns log(x[i]/x[i-1]).
func LogReturns(x []float64) []float64 {
	out := nanSlice(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = math.Log(x[i] / x[i-1])
	}
	return out
}

// -----------------------------------------------------------------------------

// windowHasNaN reports whether x[from:to] contains a NaN.
func windowHasNaN(x []float64, from, to int) bool {
	for _, v := range x[from:to] {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// RollingMean is the mean of the last n values, defined once n values without
// NaN are available.
func RollingMean(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	for i := n - 1; i < len(x); i++ {
		if windowHasNaN(x, i-n+1, i+1) {
			continue
		}
		out[i], _ = core.CalculateMeanStd(x[i-n+1:i+1], 0)
	}
	return out
}

// RollingStd is the sample standard deviation of the last n values.
func RollingStd(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	for i := n - 1; i < len(x); i++ {
		if windowHasNaN(x, i-n+1, i+1) {
			continue
		}
		_, out[i] = core.CalculateMeanStd(x[i-n+1:i+1], 1)
	}
	return out
}

// -----------------------------------------------------------------------------

// EWM is an exponentially weighted mean y[t] = (1-alpha)*y[t-1] + alpha*x[t],
// seeded with the first defined value. Later NaN inputs carry the previous value.
func EWM(x []float64, alpha float64) []float64 {
	out := nanSlice(len(x))
	seeded := false
	prev := 0.0
	for i, v := range x {
		switch {
		case math.IsNaN(v):
			if seeded {
				out[i] = prev
			}
		case !seeded:
			prev, seeded = v, true
			out[i] = prev
		default:
			prev = (1-alpha)*prev + alpha*v
			out[i] = prev
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// RSI uses Wilder smoothing (alpha = 1/period) of gains and losses. An average
// loss of zero gives 100. The first period rows are undefined.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	up := nanSlice(n)
	down := nanSlice(n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		up[i] = math.Max(d, 0)
		down[i] = math.Max(-d, 0)
	}

	alpha := 1.0 / float64(period)
	avgUp := EWM(up, alpha)
	avgDown := EWM(down, alpha)

	out := nanSlice(n)
	for i := period; i < n; i++ {
		if math.IsNaN(avgUp[i]) || math.IsNaN(avgDown[i]) {
			continue
		}
		if avgDown[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgUp[i] / avgDown[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// -----------------------------------------------------------------------------

// TrueRange is max(high-low, |high-prev_close|, |low-prev_close|); the first
// row has no previous close and uses high-low.
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		tr := high[i] - low[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(high[i]-close[i-1]))
			tr = math.Max(tr, math.Abs(low[i]-close[i-1]))
		}
		out[i] = tr
	}
	return out
}

// ATR smooths the true range with alpha = 1/period. The first period-1 rows
// are undefined.
func ATR(high, low, close []float64, period int) []float64 {
	out := EWM(TrueRange(high, low, close), 1.0/float64(period))
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

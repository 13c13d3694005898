package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fx_ticks_decoded_total", Help: "Ticks decoded from hourly buffers"},
		[]string{"pair"},
	)
	MalformedBuffers = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fx_tick_buffers_malformed_total", Help: "Tick buffers that could not be decoded"},
		[]string{"pair"},
	)
	BarsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fx_bars_built_total", Help: "Bars produced per timeframe"},
		[]string{"pair", "timeframe"},
	)
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fx_decisions_total", Help: "Decisions produced"},
		[]string{"pair", "direction", "path"},
	)
	ModelFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fx_model_fallbacks_total", Help: "Model path failures degraded to rules"},
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fx_stage_duration_seconds",
			Help:    "Wall time of pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(TicksDecoded, MalformedBuffers, BarsBuilt, Decisions, ModelFallbacks, StageDuration)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStage records the elapsed time since start. Use with defer.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

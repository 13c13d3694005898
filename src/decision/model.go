package decision

import (
	"fmt"
	"math"

	"fx-agent/src/classifier"
	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"
)

// ModelScorer serves a trained classifier and hands over to Fallback on any
// runtime failure.
type ModelScorer struct {
	Artifact   *classifier.Artifact
	Classifier interfaces.IClassifier
	Fallback   interfaces.IScorer
	Config     models.MDecisionConfig
	Logger     *logger.Logger
}

func (m *ModelScorer) Name() string { return models.ScorerModel }

// -----------------------------------------------------------------------------

func (m *ModelScorer) Score(table *models.MFeatureTable) (d models.MDecision) {
	defer func() {
		if r := recover(); r != nil {
			d = m.fallback(table, fmt.Errorf("panic: %v", r))
		}
	}()

	latest := table.Latest()
	p, err := m.Classifier.PredictProba(m.Artifact.Project(latest))
	if err != nil {
		return m.fallback(table, err)
	}
	if len(p) != classifier.NumClasses {
		return m.fallback(table, fmt.Errorf("classifier returned %d probabilities", len(p)))
	}

	class := classifier.Argmax(p)
	d = models.MDecision{
		Direction:  classifier.ClassNames[class],
		Confidence: p[class],
		Path:       models.ScorerModel,
	}
	if math.IsNaN(d.Confidence) {
		return m.fallback(table, fmt.Errorf("classifier returned NaN confidence"))
	}

	factors := []string{fmt.Sprintf("Model predicts %s (p=%.2f)", d.Direction, d.Confidence)}
	c := m.Config
	rsi := latest.Get("rsi_14", 50)
	switch {
	case rsi < c.RSIOversold:
		factors = append(factors, fmt.Sprintf("RSI %.1f oversold", rsi))
	case rsi > c.RSIOverbought:
		factors = append(factors, fmt.Sprintf("RSI %.1f overbought", rsi))
	}
	if macro := latest.Get("macro_sent_24H", 0); math.Abs(macro) > c.MacroSentiment {
		factors = append(factors, fmt.Sprintf("Macro event impact (%+.2f)", macro))
	}
	vol20 := latest.Get("vol_20", 0)
	if vol20 > latest.Get("vol_60", vol20)*1.5 {
		factors = append(factors, "Volatility spike (vol_20 above 1.5x vol_60)")
	}
	d.Factors = capFactors(factors)
	return d
}

// -----------------------------------------------------------------------------

func (m *ModelScorer) fallback(table *models.MFeatureTable, err error) models.MDecision {
	metrics.ModelFallbacks.Inc()
	m.Logger.Warning("Model path failed, using rules: %v", err)
	return m.Fallback.Score(table)
}

package decision

import (
	"fmt"
	"math"

	"fx-agent/src/analysis/core"
	"fx-agent/src/models"
)

// MaxFactors caps the explanatory factors of a decision.
const MaxFactors = 5

// RuleScorer accumulates a signed direction score from independent signals.
type RuleScorer struct {
	Config models.MDecisionConfig
}

func NewRuleScorer(cfg *models.MConfig) *RuleScorer {
	return &RuleScorer{Config: cfg.Decision}
}

func (r *RuleScorer) Name() string { return models.ScorerRules }

// -----------------------------------------------------------------------------

// Score evaluates RSI, the distance to the 20-bar average and 24h macro
// sentiment. Missing RSI reads as 50 and a missing average as the close.
func (r *RuleScorer) Score(table *models.MFeatureTable) models.MDecision {
	c := r.Config
	latest := table.Latest()

	closePrice := latest.Get("close", 0)
	rsi := latest.Get("rsi_14", 50)
	ma20 := latest.Get("ma_20", closePrice)
	macroSent := latest.Get("macro_sent_24H", 0)

	score := 0.0
	var factors []string

	switch {
	case rsi < c.RSIOversold:
		factors = append(factors, fmt.Sprintf("RSI %.1f oversold (below %.0f), buy signal", rsi, c.RSIOversold))
		score += 0.3
	case rsi > c.RSIOverbought:
		factors = append(factors, fmt.Sprintf("RSI %.1f overbought (above %.0f), sell signal", rsi, c.RSIOverbought))
		score -= 0.3
	}

	switch {
	case closePrice > ma20*(1+c.MABand):
		factors = append(factors, fmt.Sprintf("Price more than %.0f%% above MA20, uptrend", c.MABand*100))
		score += 0.2
	case closePrice < ma20*(1-c.MABand):
		factors = append(factors, fmt.Sprintf("Price more than %.0f%% below MA20, downtrend", c.MABand*100))
		score -= 0.2
	}

	switch {
	case macroSent > c.MacroSentiment:
		factors = append(factors, fmt.Sprintf("Macro events bullish (surprise %+.2f), buy factor", macroSent))
		score += 0.25
	case macroSent < -c.MacroSentiment:
		factors = append(factors, fmt.Sprintf("Macro events bearish (surprise %+.2f), sell factor", macroSent))
		score -= 0.25
	}

	if table.Len() > c.MinHistory {
		vol20, _ := table.Column("vol_20")
		if v := latest.Get("vol_20", 0); v > core.Quantile(vol20, 0.8) {
			factors = append(factors, "Volatility elevated, higher risk")
		}
	}

	d := models.MDecision{Path: models.ScorerRules, Factors: capFactors(factors)}
	switch {
	case score > c.ScoreThreshold:
		d.Direction = models.DirectionBuy
		d.Confidence = math.Min(0.7+math.Abs(score)*0.3, 0.95)
	case score < -c.ScoreThreshold:
		d.Direction = models.DirectionSell
		d.Confidence = math.Min(0.7+math.Abs(score)*0.3, 0.95)
	default:
		d.Direction = models.DirectionHold
		d.Confidence = 0.5
	}
	return d
}

// -----------------------------------------------------------------------------

func capFactors(f []string) []string {
	if f == nil {
		return []string{}
	}
	if len(f) > MaxFactors {
		return f[:MaxFactors]
	}
	return f
}

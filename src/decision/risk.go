package decision

import (
	"fx-agent/src/analysis/core"
	"fx-agent/src/models"
)

// AssessRisk returns high when 20-bar volatility is above its own trailing
// quantile (only with MinHistory rows or more) or the spread is wide against
// its 60-bar average, medium on a busy macro calendar, else low.
func AssessRisk(cfg models.MDecisionConfig, table *models.MFeatureTable) string {
	latest := table.Latest()

	if table.Len() >= cfg.MinHistory {
		vol20, _ := table.Column("vol_20")
		if v := latest.Get("vol_20", 0); v > core.Quantile(vol20, cfg.VolQuantile) {
			return models.RiskHigh
		}
	}

	spread := latest.Get("spread", 0)
	if spread > latest.Get("spread_ma_60", spread)*cfg.SpreadMultiplier {
		return models.RiskHigh
	}

	if latest.Get("macro_cnt_24H", 0) > cfg.MacroCountMedium {
		return models.RiskMedium
	}
	return models.RiskLow
}

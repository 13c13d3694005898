package decision

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"fx-agent/src/models"
)

var directionLabels = map[string]string{
	models.DirectionBuy:  "BUY",
	models.DirectionSell: "SELL",
	models.DirectionHold: "HOLD (wait)",
}

// -----------------------------------------------------------------------------

// Analysis describes market state in a few sentences.
func Analysis(latest models.MFeatureRow, d models.MDecision) string {
	var parts []string

	rsi := latest.Get("rsi_14", 50)
	switch {
	case rsi < 40:
		parts = append(parts, "The market is oversold.")
	case rsi > 60:
		parts = append(parts, "The market is overbought.")
	default:
		parts = append(parts, "The market is neutral.")
	}

	if macro := latest.Get("macro_sent_24H", 0); math.Abs(macro) > 0.5 {
		if macro > 0 {
			parts = append(parts, "Recent releases surprised to the upside, supporting the pair.")
		} else {
			parts = append(parts, "Recent releases surprised to the downside, weighing on the pair.")
		}
	}

	parts = append(parts, fmt.Sprintf("Call: %s (confidence %d%%)", directionLabels[d.Direction], int(d.Confidence*100)))
	return strings.Join(parts, "\n")
}

// -----------------------------------------------------------------------------

// FormatText renders a decision for the chat front end.
func FormatText(d models.MDecision, latest models.MFeatureRow) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s forecast\n\n", d.Pair, d.Timeframe)
	fmt.Fprintf(&b, "Direction: %s\n", directionLabels[d.Direction])
	fmt.Fprintf(&b, "Confidence: %d%%\n", int(d.Confidence*100))
	fmt.Fprintf(&b, "Price: %s\n\n", number(latest, "close", 3))

	b.WriteString("Indicators\n")
	fmt.Fprintf(&b, "RSI(14): %s\n", number(latest, "rsi_14", 2))
	fmt.Fprintf(&b, "ATR(14): %s\n", number(latest, "atr_14", 4))
	fmt.Fprintf(&b, "MA(20): %s\n\n", number(latest, "ma_20", 3))

	b.WriteString("Events (24h)\n")
	fmt.Fprintf(&b, "Macro: %.0f\n", latest.Get("macro_cnt_24H", 0))
	fmt.Fprintf(&b, "News: %.0f\n", latest.Get("news_cnt_24H", 0))

	if sessions := openSessions(latest); len(sessions) > 0 {
		fmt.Fprintf(&b, "Open sessions: %s\n", strings.Join(sessions, ", "))
	}

	if d.Analysis != "" {
		b.WriteString("\nAnalysis\n")
		b.WriteString(d.Analysis)
		b.WriteString("\n")
	}

	if len(d.Factors) > 0 {
		b.WriteString("\nKey factors\n")
		for i, f := range d.Factors {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f)
		}
	}

	switch d.RiskLevel {
	case models.RiskHigh:
		b.WriteString("\nRisk: HIGH. Volatility or spread is elevated, size positions carefully.\n")
	case models.RiskMedium:
		b.WriteString("\nRisk: MEDIUM. Several macro events in the last 24h.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// -----------------------------------------------------------------------------

func number(row models.MFeatureRow, name string, digits int) string {
	v, ok := row.Values[name]
	if !ok || math.IsNaN(v) {
		return "N/A"
	}
	return fmt.Sprintf("%.*f", digits, v)
}

func openSessions(row models.MFeatureRow) []string {
	var out []string
	for name, v := range row.Values {
		if strings.HasPrefix(name, "session_") && strings.HasSuffix(name, "_open") && v == 1 {
			out = append(out, strings.TrimSuffix(strings.TrimPrefix(name, "session_"), "_open"))
		}
	}
	sort.Strings(out)
	return out
}

package decision

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"fx-agent/src/classifier"
	"fx-agent/src/config"
	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	proba []float64
	err   error
	calls int
}

func (f *fakeClassifier) PredictProba(x []float64) ([]float64, error) {
	f.calls++
	return f.proba, f.err
}

func (f *fakeClassifier) Close() error { return nil }

func testConfig() *models.MConfig {
	return config.Default().MConfig
}

// table builds n rows where every column holds the same value except where
// overridden on the last row.
func table(n int, last map[string]float64) *models.MFeatureTable {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = start.Add(time.Duration(i) * 5 * time.Minute)
	}
	t := models.NewFeatureTable(idx)
	base := map[string]float64{
		"close": 150, "rsi_14": 50, "ma_20": 150, "vol_20": 0.001, "vol_60": 0.001,
		"spread": 0.02, "spread_ma_60": 0.02, "macro_sent_24H": 0, "macro_cnt_24H": 0, "news_cnt_24H": 0,
	}
	for name, v := range base {
		col := make([]float64, n)
		for i := range col {
			col[i] = v
		}
		if o, ok := last[name]; ok {
			col[n-1] = o
		}
		t.Set(name, col)
	}
	return t
}

func TestDecideEmptyTable(t *testing.T) {
	e := NewEngine(testConfig(), logger.NewNopLogger(), NewRuleScorer(testConfig()))

	for _, tbl := range []*models.MFeatureTable{nil, models.NewFeatureTable(nil)} {
		d := e.Decide("USDJPY", "M5", tbl)
		assert.Equal(t, models.DirectionHold, d.Direction)
		assert.Equal(t, 0.0, d.Confidence)
		assert.Equal(t, models.RiskHigh, d.RiskLevel)
		assert.Equal(t, []string{InsufficientData}, d.Factors)
	}
}

func TestRuleScenarioBuy(t *testing.T) {
	assert := assert.New(t)
	cfg := testConfig()
	e := NewEngine(cfg, logger.NewNopLogger(), NewRuleScorer(cfg))

	d := e.Decide("USDJPY", "M5", table(10, map[string]float64{
		"rsi_14": 25, "close": 152.25, "ma_20": 150, "macro_sent_24H": 0.6,
	}))

	assert.Equal(models.DirectionBuy, d.Direction)
	assert.GreaterOrEqual(d.Confidence, 0.85)
	assert.InDelta(0.925, d.Confidence, 1e-9)
	assert.Equal(models.ScorerRules, d.Path)
	require.Len(t, d.Factors, 3)
	assert.Contains(d.Factors[0], "oversold")
	assert.Contains(d.Factors[2], "bullish")
	assert.Equal(152.25, d.Close)
}

func TestRuleScorerThresholds(t *testing.T) {
	r := NewRuleScorer(testConfig())

	// RSI alone scores exactly 0.3, which is not beyond the threshold
	d := r.Score(table(5, map[string]float64{"rsi_14": 75}))
	assert.Equal(t, models.DirectionHold, d.Direction)
	assert.Equal(t, 0.5, d.Confidence)
	assert.Len(t, d.Factors, 1)

	d = r.Score(table(5, map[string]float64{"rsi_14": 75, "close": 148}))
	assert.Equal(t, models.DirectionSell, d.Direction)
	assert.InDelta(t, 0.85, d.Confidence, 1e-9)

	d = r.Score(table(5, map[string]float64{"rsi_14": 10, "close": 170, "macro_sent_24H": 5}))
	assert.Equal(t, 0.925, math.Round(d.Confidence*1000)/1000)

	// undefined RSI and MA read as neutral
	d = r.Score(table(5, map[string]float64{"rsi_14": math.NaN(), "ma_20": math.NaN()}))
	assert.Equal(t, models.DirectionHold, d.Direction)
	assert.Empty(t, d.Factors)
}

func TestRuleScorerVolatilityFactor(t *testing.T) {
	tbl := table(30, map[string]float64{"vol_20": 0.01})
	d := NewRuleScorer(testConfig()).Score(tbl)
	require.Len(t, d.Factors, 1)
	assert.Contains(t, d.Factors[0], "Volatility")

	d = NewRuleScorer(testConfig()).Score(table(20, map[string]float64{"vol_20": 0.01}))
	assert.Empty(t, d.Factors)
}

func TestAssessRisk(t *testing.T) {
	cfg := testConfig().Decision

	assert.Equal(t, models.RiskLow, AssessRisk(cfg, table(30, nil)))
	assert.Equal(t, models.RiskHigh, AssessRisk(cfg, table(30, map[string]float64{"vol_20": 0.01})))
	// volatility check needs min_history rows
	assert.Equal(t, models.RiskLow, AssessRisk(cfg, table(19, map[string]float64{"vol_20": 0.01})))
	assert.Equal(t, models.RiskHigh, AssessRisk(cfg, table(5, map[string]float64{"spread": 0.05})))
	assert.Equal(t, models.RiskLow, AssessRisk(cfg, table(5, map[string]float64{"spread": 0.05, "spread_ma_60": math.NaN()})))
	assert.Equal(t, models.RiskMedium, AssessRisk(cfg, table(5, map[string]float64{"macro_cnt_24H": 4})))
}

func modelScorer(clf *fakeClassifier) *ModelScorer {
	cfg := testConfig()
	return &ModelScorer{
		Artifact:   &classifier.Artifact{FeatureColumns: []string{"rsi_14", "missing"}},
		Classifier: clf,
		Fallback:   NewRuleScorer(cfg),
		Config:     cfg.Decision,
		Logger:     logger.NewNopLogger(),
	}
}

func TestModelScorer(t *testing.T) {
	clf := &fakeClassifier{proba: []float64{0.1, 0.2, 0.7}}
	d := modelScorer(clf).Score(table(5, map[string]float64{"rsi_14": 20, "macro_sent_24H": -0.8}))

	assert.Equal(t, models.DirectionBuy, d.Direction)
	assert.Equal(t, 0.7, d.Confidence)
	assert.Equal(t, models.ScorerModel, d.Path)
	require.Len(t, d.Factors, 3)
	assert.Contains(t, d.Factors[1], "oversold")
	assert.Contains(t, d.Factors[2], "-0.80")
}

func TestModelScorerFallsBackToRules(t *testing.T) {
	last := map[string]float64{"rsi_14": 25, "close": 152.25, "macro_sent_24H": 0.6}

	for _, clf := range []*fakeClassifier{
		{err: errors.New("session closed")},
		{proba: []float64{0.5, 0.5}},
		{proba: []float64{math.NaN(), math.NaN(), math.NaN()}},
	} {
		d := modelScorer(clf).Score(table(5, last))
		assert.Equal(t, 1, clf.calls)
		assert.Equal(t, models.ScorerRules, d.Path)
		assert.Equal(t, models.DirectionBuy, d.Direction)
	}
}

func TestNewScorerSelection(t *testing.T) {
	cfg := testConfig()
	log := logger.NewNopLogger()
	dir := t.TempDir()

	assert.Equal(t, models.ScorerRules, NewScorer(cfg, log, "", time.Now()).Name())
	assert.Equal(t, models.ScorerRules, NewScorer(cfg, log, filepath.Join(dir, "none.json"), time.Now()).Name())

	m, err := classifier.FitSoftmax([][]float64{{1}, {2}, {3}}, []int{0, 1, 2}, classifier.FitOptions{Epochs: 5, LearningRate: 0.1})
	require.NoError(t, err)
	path := filepath.Join(dir, "fx_usdjpy_model.json")
	require.NoError(t, (&classifier.Artifact{
		Kind: classifier.KindSoftmax, FeatureColumns: []string{"rsi_14"}, Softmax: m,
		Metadata: classifier.Metadata{TrainedAt: time.Now()},
	}).Save(path))

	s := NewScorer(cfg, log, path, time.Now())
	assert.Equal(t, models.ScorerModel, s.Name())

	e := NewEngine(cfg, log, s)
	d := e.Decide("USDJPY", "M5", table(5, nil))
	assert.Equal(t, models.ScorerModel, d.Path)
	assert.NoError(t, e.Close())
}

func TestFormatText(t *testing.T) {
	cfg := testConfig()
	e := NewEngine(cfg, logger.NewNopLogger(), NewRuleScorer(cfg))
	tbl := table(5, map[string]float64{"rsi_14": 25, "close": 152.25, "macro_sent_24H": 0.6, "macro_cnt_24H": 4})
	tbl.Set("session_USD_open", []float64{1, 1, 1, 1, 1})
	tbl.Set("session_JPY_open", []float64{0, 0, 0, 0, 0})

	d := e.Decide("USDJPY", "M5", tbl)
	text := FormatText(d, tbl.Latest())

	assert.Contains(t, text, "USDJPY M5 forecast")
	assert.Contains(t, text, "Direction: BUY")
	assert.Contains(t, text, "Confidence: 92%")
	assert.Contains(t, text, "Price: 152.250")
	assert.Contains(t, text, "ATR(14): N/A")
	assert.Contains(t, text, "Macro: 4")
	assert.Contains(t, text, "Open sessions: USD\n")
	assert.Contains(t, text, "1. RSI 25.0 oversold")
	assert.Contains(t, text, "Risk: MEDIUM")
}

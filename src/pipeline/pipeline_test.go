package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fx-agent/src/config"
	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/models"
	"fx-agent/src/storage"
	"fx-agent/src/ticks"
	"fx-agent/src/trainer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *models.MConfig {
	dir := t.TempDir()
	cfg := config.Default().MConfig
	cfg.Paths.DataRoot = filepath.Join(dir, "data")
	cfg.Paths.ModelDir = filepath.Join(dir, "models")
	cfg.Bars.Timeframes = []string{"M5", "H1"}
	cfg.Training.ForwardBars = 3
	cfg.Training.Epochs = 30
	return cfg
}

// writeTicks stores one tick per minute for the given hours of day.
func writeTicks(t *testing.T, cfg *models.MConfig, hours int) {
	for h := 0; h < hours; h++ {
		hour := day.Add(time.Duration(h) * time.Hour)
		var hourTicks []models.MTick
		for m := 0; m < 60; m++ {
			i := float64(h*60 + m)
			mid := 150 * (1 + 0.004*math.Sin(i/20))
			hourTicks = append(hourTicks, models.MTick{
				Timestamp: hour.Add(time.Duration(m)*time.Minute + time.Second),
				Bid:       mid - 0.005,
				Ask:       mid + 0.005,
				BidVolume: 1,
				AskVolume: 1,
			})
		}
		packed, err := ticks.Compress(ticks.Encode(hourTicks, hour, 1000))
		require.NoError(t, err)
		require.NoError(t, helpers.WriteFileAtomic(storage.RawTickPath(cfg, "USDJPY", hour), packed, 0o644))
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	log := logger.NewNopLogger()
	writeTicks(t, cfg, 24)

	written, err := BuildMinuteBars(cfg, log, "usdjpy", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	minute, err := storage.ReadBars(storage.MinuteBarPath(cfg, "USDJPY", day))
	require.NoError(t, err)
	assert.Len(t, minute, 24*60)

	counts, err := BuildTimeframes(cfg, log, "USDJPY", nil)
	require.NoError(t, err)
	assert.Equal(t, 288, counts["M5"])
	assert.Equal(t, 24, counts["H1"])

	n, err := ImportEvents(cfg, log, []models.MEvent{
		{Timestamp: day.Add(2 * time.Hour), Source: "calendar", Category: "macro", Importance: 3, Sentiment: 1, Event: "CPI"},
		{Timestamp: day.Add(3 * time.Hour), Source: "rss", Category: "news", Sentiment: -0.5, Event: "headline", URL: "https://example.com/a"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	table, err := BuildFeatures(cfg, log, "USDJPY", "M5")
	require.NoError(t, err)
	assert.Equal(t, 288, table.Len())
	macro, ok := table.Column("macro_cnt_24H")
	require.True(t, ok)
	assert.Equal(t, 0.0, macro[0])
	assert.Equal(t, 1.0, macro[len(macro)-1])

	// rules until a model exists
	d, _, err := LatestDecision(cfg, log, "USDJPY", "M5")
	require.NoError(t, err)
	assert.Equal(t, models.ScorerRules, d.Path)
	assert.True(t, d.BarTime.Equal(day.Add(24*time.Hour-5*time.Minute)))

	artifact, err := Train(cfg, log, "USDJPY", "M5", trainer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 285, artifact.Metadata.Rows)
	_, err = os.Stat(storage.ModelPath(cfg, "USDJPY"))
	require.NoError(t, err)

	d, _, err = LatestDecision(cfg, log, "USDJPY", "M5")
	require.NoError(t, err)
	assert.Equal(t, models.ScorerModel, d.Path)
	assert.InDelta(t, 0.5, d.Confidence, 0.5)

	text := LatestDecisionText(cfg, log, "USDJPY", "M5")
	assert.Contains(t, text, "USDJPY M5 forecast")
}

func TestTrainInsufficientDataWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	log := logger.NewNopLogger()
	writeTicks(t, cfg, 4)

	_, err := BuildMinuteBars(cfg, log, "USDJPY", day, day)
	require.NoError(t, err)
	_, err = BuildTimeframes(cfg, log, "USDJPY", []string{"M5"})
	require.NoError(t, err)
	_, err = BuildFeatures(cfg, log, "USDJPY", "M5")
	require.NoError(t, err)

	_, err = Train(cfg, log, "USDJPY", "M5", trainer.Options{})
	assert.True(t, helpers.IsInsufficientData(err))
	_, err = os.Stat(storage.ModelPath(cfg, "USDJPY"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildMinuteBarsSkipsDaysWithoutTicks(t *testing.T) {
	cfg := testConfig(t)
	written, err := BuildMinuteBars(cfg, logger.NewNopLogger(), "USDJPY", day, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	_, err = BuildTimeframes(cfg, logger.NewNopLogger(), "USDJPY", nil)
	assert.True(t, helpers.IsMissingData(err))
}

func TestLatestDecisionTextWithoutData(t *testing.T) {
	cfg := testConfig(t)
	text := LatestDecisionText(cfg, logger.NewNopLogger(), "eurusd", "M5")
	assert.Equal(t, DataNotAvailable("EURUSD", "M5"), text)

	svc := NewDecisionService(cfg, logger.NewNopLogger())
	_, err := svc.Decision(context.Background(), "EURUSD", "M5")
	assert.True(t, helpers.IsMissingData(err))
}

func TestShouldRetrain(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	feats := filepath.Join(dir, "features.sqlite")
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	retrain, _ := ShouldRetrain(model, feats, 7, now)
	assert.False(t, retrain)

	require.NoError(t, os.WriteFile(feats, []byte("x"), 0o644))
	retrain, reason := ShouldRetrain(model, feats, 7, now)
	assert.True(t, retrain)
	assert.Equal(t, "no model yet", reason)

	require.NoError(t, os.WriteFile(model, []byte("{}"), 0o644))
	require.NoError(t, os.Chtimes(feats, now.Add(-72*time.Hour), now.Add(-72*time.Hour)))
	require.NoError(t, os.Chtimes(model, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	retrain, _ = ShouldRetrain(model, feats, 7, now)
	assert.False(t, retrain)

	require.NoError(t, os.Chtimes(feats, now.Add(-24*time.Hour), now.Add(-24*time.Hour)))
	retrain, reason = ShouldRetrain(model, feats, 7, now)
	assert.True(t, retrain)
	assert.Equal(t, "features updated after model", reason)

	require.NoError(t, os.Chtimes(feats, now.Add(-10*24*time.Hour), now.Add(-10*24*time.Hour)))
	require.NoError(t, os.Chtimes(model, now.Add(-8*24*time.Hour), now.Add(-8*24*time.Hour)))
	retrain, reason = ShouldRetrain(model, feats, 7, now)
	assert.True(t, retrain)
	assert.Equal(t, "model is stale", reason)
}

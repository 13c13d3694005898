package storage

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *models.MConfig {
	dir := t.TempDir()
	return &models.MConfig{Paths: models.MPathsConfig{DataRoot: filepath.Join(dir, "data"), ModelDir: filepath.Join(dir, "models")}}
}

func TestLayout(t *testing.T) {
	cfg := &models.MConfig{Paths: models.MPathsConfig{DataRoot: "data", ModelDir: "models"}}

	assert.Equal(t, filepath.Join("data", "raw_bi5", "USDJPY", "2024", "00", "15", "13h_ticks.bi5"),
		RawTickPath(cfg, "usdjpy", time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, filepath.Join("data", "bars", "USDJPY", "tf=M1", "date=2024-05-01", "part-000.sqlite"),
		MinuteBarPath(cfg, "USDJPY", base))
	assert.Equal(t, filepath.Join("data", "bars", "USDJPY", "tf=H1", "all.sqlite"), TimeframeBarPath(cfg, "USDJPY", "H1"))
	assert.Equal(t, filepath.Join("data", "features", "USDJPY", "M5_features.sqlite"), FeaturesPath(cfg, "USDJPY", "M5"))
	assert.Equal(t, filepath.Join("models", "fx_usdjpy_model.json"), ModelPath(cfg, "USDJPY"))
}

func TestBarsRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	path := MinuteBarPath(cfg, "USDJPY", base)

	bars := []models.MBar{
		{Timestamp: base, Open: 150.0, High: 150.2, Low: 149.9, Close: 150.1, Volume: 3, Spread: 0.002},
		{Timestamp: base.Add(time.Minute), Open: 150.1, High: 150.1, Low: 150.0, Close: 150.05, Volume: 1, Spread: math.NaN()},
	}
	require.NoError(t, WriteBars(path, bars))

	got, err := ReadBars(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(base))
	assert.Equal(t, 150.2, got[0].High)
	assert.Equal(t, 0.002, got[0].Spread)
	assert.True(t, math.IsNaN(got[1].Spread))

	// rewriting replaces the partition
	require.NoError(t, WriteBars(path, bars[:1]))
	got, err = ReadBars(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	all, err := ReadMinuteBars(cfg, logger.NewNopLogger(), "USDJPY")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReadBarsMissing(t *testing.T) {
	cfg := testConfig(t)

	_, err := ReadBars(TimeframeBarPath(cfg, "USDJPY", "H1"))
	assert.True(t, helpers.IsMissingData(err))

	_, err = ReadMinuteBars(cfg, logger.NewNopLogger(), "USDJPY")
	assert.True(t, helpers.IsMissingData(err))
}

func TestReadBarsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE bars (ts INTEGER PRIMARY KEY, open REAL, close REAL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = ReadBars(path)
	assert.True(t, helpers.IsMalformedInput(err))
}

func TestReadMinuteBarsSkipsMalformedPartition(t *testing.T) {
	cfg := testConfig(t)
	good := []models.MBar{{Timestamp: base, Open: 150.0, High: 150.2, Low: 149.9, Close: 150.1, Volume: 3, Spread: 0.002}}
	require.NoError(t, WriteBars(MinuteBarPath(cfg, "USDJPY", base), good))

	badPath := MinuteBarPath(cfg, "USDJPY", base.AddDate(0, 0, 1))
	require.NoError(t, WriteBars(badPath, good))
	db, err := sql.Open("sqlite", badPath)
	require.NoError(t, err)
	_, err = db.Exec(`ALTER TABLE bars DROP COLUMN close`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	all, err := ReadMinuteBars(cfg, logger.NewNopLogger(), "USDJPY")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Timestamp.Equal(base))
}

func TestFeaturesRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	path := FeaturesPath(cfg, "USDJPY", "M5")

	table := models.NewFeatureTable([]time.Time{base, base.Add(5 * time.Minute)})
	table.Set("close", []float64{150, 150.1})
	table.Set("rsi_14", []float64{math.NaN(), 55})
	table.Set("macro_cnt_24H", []float64{0, 1})
	require.NoError(t, WriteFeatures(path, table))

	got, err := ReadFeatures(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"close", "rsi_14", "macro_cnt_24H"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.True(t, got.Timestamps[1].Equal(base.Add(5*time.Minute)))
	assert.True(t, math.IsNaN(got.Values["rsi_14"][0]))
	assert.Equal(t, 55.0, got.Values["rsi_14"][1])

	_, err = ReadFeatures(FeaturesPath(cfg, "EURUSD", "M5"))
	assert.True(t, helpers.IsMissingData(err))
}

func TestSQLiteEventStore(t *testing.T) {
	cfg := testConfig(t)
	store, err := NewEventStore(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	defer store.Close()

	require.NoError(t, store.Upsert([]models.MEvent{
		{ID: "b", Timestamp: base.Add(time.Hour), Category: "news", Sentiment: 0.5},
		{ID: "a", Timestamp: base, Category: "macro", Importance: 3, Weight: 1, Sentiment: 1, WeightedSentiment: 1},
	}))
	require.NoError(t, store.Upsert([]models.MEvent{
		{ID: "a", Timestamp: base, Category: "macro", Importance: 3, Weight: 1, Sentiment: -1, WeightedSentiment: -1},
	}))

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, -1.0, all[0].Sentiment)
	assert.True(t, all[0].Timestamp.Equal(base))
	assert.Equal(t, "news", all[1].Category)
}

func TestNewEventStoreRejectsUnknownType(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.DBType = "mysql"
	_, err := NewEventStore(cfg, logger.NewNopLogger())
	assert.Error(t, err)
}

package pipeline

import (
	"fmt"
	"os"
	"strings"
	"time"

	"fx-agent/src/analysis"
	"fx-agent/src/events"
	"fx-agent/src/features"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"
	"fx-agent/src/storage"
)

// -----------------------------------------------------------------------------

// LoadEvents reads the whole event table.
func LoadEvents(cfg *models.MConfig, log *logger.Logger) (*events.Table, error) {
	store, err := storage.NewEventStore(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	defer store.Close()

	all, err := store.All()
	if err != nil {
		return nil, err
	}
	return events.NewTable(all...), nil
}

// -----------------------------------------------------------------------------

// ImportEvents normalizes a batch and merges it into the event table.
func ImportEvents(cfg *models.MConfig, log *logger.Logger, batch []models.MEvent) (int, error) {
	defer metrics.ObserveStage("import_events", time.Now())

	normalized := make([]models.MEvent, len(batch))
	for i, e := range batch {
		normalized[i] = events.Normalize(e)
	}

	store, err := storage.NewEventStore(cfg, log)
	if err != nil {
		return 0, err
	}
	if err := store.Initialize(); err != nil {
		return 0, err
	}
	defer store.Close()

	if err := store.Upsert(normalized); err != nil {
		return 0, err
	}
	log.Info("Imported %d events", len(normalized))
	return len(normalized), nil
}

// -----------------------------------------------------------------------------

// ImportEventsFile imports a JSON-lines event batch.
func ImportEventsFile(cfg *models.MConfig, log *logger.Logger, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open event batch %s: %w", path, err)
	}
	defer f.Close()

	batch, err := events.ReadJSONLines(f)
	if err != nil {
		return 0, err
	}
	return ImportEvents(cfg, log, batch)
}

// -----------------------------------------------------------------------------

// BuildFeatures joins stored bars with the event table and writes the feature
// table of one timeframe. An unreadable event table degrades to zero event
// columns.
func BuildFeatures(cfg *models.MConfig, log *logger.Logger, pair, tf string) (*models.MFeatureTable, error) {
	defer metrics.ObserveStage("build_features", time.Now())

	pair = strings.ToUpper(pair)
	if tf == "" {
		tf = cfg.Features.Timeframe
	}
	if !analysis.IsTimeframe(tf) {
		return nil, fmt.Errorf("unknown timeframe %q", tf)
	}

	bars, err := LoadBars(cfg, log, pair, tf)
	if err != nil {
		return nil, err
	}

	table, err := LoadEvents(cfg, log)
	if err != nil {
		log.Warning("Event table unavailable (%v), event columns will be zero", err)
		table = events.NewTable()
	}

	out, err := features.NewEngine(cfg, log).Build(pair, tf, bars, table)
	if err != nil {
		return nil, err
	}

	if err := storage.WriteFeatures(storage.FeaturesPath(cfg, pair, tf), out); err != nil {
		return nil, err
	}
	log.Info("[%s] wrote %d %s feature rows with %d columns", pair, out.Len(), tf, len(out.Columns))
	return out, nil
}

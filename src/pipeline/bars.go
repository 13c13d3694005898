package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fx-agent/src/analysis"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"
	"fx-agent/src/storage"
	"fx-agent/src/ticks"
)

// -----------------------------------------------------------------------------

// BuildMinuteBars decodes the hourly tick files of every date in
// [startDate, endDate] and writes one M1 partition per date that has ticks.
// It returns the number of partitions written.
func BuildMinuteBars(cfg *models.MConfig, log *logger.Logger, pair string, startDate, endDate time.Time) (int, error) {
	defer metrics.ObserveStage("build_m1", time.Now())

	pair = strings.ToUpper(pair)
	decoder := ticks.NewDecoder(cfg, log)
	builder := analysis.NewBarBuilder(cfg, log)

	day := startDate.UTC().Truncate(24 * time.Hour)
	last := endDate.UTC().Truncate(24 * time.Hour)
	if last.Before(day) {
		return 0, fmt.Errorf("end date %s is before start date %s", last.Format("2006-01-02"), day.Format("2006-01-02"))
	}

	written := 0
	for ; !day.After(last); day = day.AddDate(0, 0, 1) {
		dir := filepath.Dir(storage.RawTickPath(cfg, pair, day))
		files, err := filepath.Glob(filepath.Join(dir, "*h_ticks.bi5"))
		if err != nil {
			return written, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		if len(files) == 0 {
			log.Info("[%s] no tick files for %s", pair, day.Format("2006-01-02"))
			continue
		}
		sort.Strings(files)

		var all []models.MTick
		for _, f := range files {
			all = append(all, decoder.DecodeFile(pair, f)...)
		}

		bars := builder.TicksToMinuteBars(all)
		if len(bars) == 0 {
			log.Warning("[%s] no bars built for %s from %d files", pair, day.Format("2006-01-02"), len(files))
			continue
		}

		if err := storage.WriteBars(storage.MinuteBarPath(cfg, pair, day), bars); err != nil {
			return written, err
		}
		metrics.BarsBuilt.WithLabelValues(pair, analysis.TimeframeM1).Add(float64(len(bars)))
		log.Info("[%s] %s: %d ticks -> %d M1 bars", pair, day.Format("2006-01-02"), len(all), len(bars))
		written++
	}
	return written, nil
}

// -----------------------------------------------------------------------------

// BuildTimeframes resamples all M1 partitions of a pair into the requested
// timeframes (bars.timeframes when tfs is empty) and returns bar counts per
// timeframe written.
func BuildTimeframes(cfg *models.MConfig, log *logger.Logger, pair string, tfs []string) (map[string]int, error) {
	defer metrics.ObserveStage("build_bars", time.Now())

	pair = strings.ToUpper(pair)
	if len(tfs) == 0 {
		tfs = cfg.Bars.Timeframes
	}

	minute, err := storage.ReadMinuteBars(cfg, log, pair)
	if err != nil {
		return nil, err
	}

	builder := analysis.NewBarBuilder(cfg, log)
	ladder, err := builder.BuildLadder(pair, minute, tfs)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(ladder))
	for tf, bars := range ladder {
		if err := storage.WriteBars(storage.TimeframeBarPath(cfg, pair, tf), bars); err != nil {
			return counts, err
		}
		counts[tf] = len(bars)
		log.Info("[%s] wrote %d %s bars", pair, len(bars), tf)
	}
	return counts, nil
}

// -----------------------------------------------------------------------------

// LoadBars reads the stored bars of one timeframe.
func LoadBars(cfg *models.MConfig, log *logger.Logger, pair, tf string) ([]models.MBar, error) {
	if tf == analysis.TimeframeM1 {
		return storage.ReadMinuteBars(cfg, log, pair)
	}
	return storage.ReadBars(storage.TimeframeBarPath(cfg, pair, tf))
}

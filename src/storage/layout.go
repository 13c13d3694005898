package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------
// On-disk layout under paths.data_root
// -----------------------------------------------------------------------------

// RawTickPath returns raw_bi5/<PAIR>/<YYYY>/<MM0>/<DD>/<HH>h_ticks.bi5.
// The month directory is zero-based.
func RawTickPath(cfg *models.MConfig, pair string, hour time.Time) string {
	hour = hour.UTC()
	return filepath.Join(cfg.Paths.DataRoot, "raw_bi5", strings.ToUpper(pair),
		fmt.Sprintf("%04d", hour.Year()),
		fmt.Sprintf("%02d", int(hour.Month())-1),
		fmt.Sprintf("%02d", hour.Day()),
		fmt.Sprintf("%02dh_ticks.bi5", hour.Hour()))
}

// -----------------------------------------------------------------------------

// MinuteBarPath returns the M1 partition for one calendar date.
func MinuteBarPath(cfg *models.MConfig, pair string, day time.Time) string {
	return filepath.Join(MinuteBarDir(cfg, pair), "date="+day.UTC().Format("2006-01-02"), "part-000.sqlite")
}

// MinuteBarDir returns the directory holding every M1 date partition of a pair.
func MinuteBarDir(cfg *models.MConfig, pair string) string {
	return filepath.Join(cfg.Paths.DataRoot, "bars", strings.ToUpper(pair), "tf=M1")
}

// -----------------------------------------------------------------------------

// TimeframeBarPath returns bars/<PAIR>/tf=<TF>/all.sqlite.
func TimeframeBarPath(cfg *models.MConfig, pair, tf string) string {
	return filepath.Join(cfg.Paths.DataRoot, "bars", strings.ToUpper(pair), "tf="+tf, "all.sqlite")
}

// -----------------------------------------------------------------------------

func EventsPath(cfg *models.MConfig) string {
	return filepath.Join(cfg.Paths.DataRoot, "events", "events_cache.sqlite")
}

func FeaturesPath(cfg *models.MConfig, pair, tf string) string {
	return filepath.Join(cfg.Paths.DataRoot, "features", strings.ToUpper(pair), tf+"_features.sqlite")
}

func ModelPath(cfg *models.MConfig, pair string) string {
	return filepath.Join(cfg.Paths.ModelDir, fmt.Sprintf("fx_%s_model.json", strings.ToLower(pair)))
}

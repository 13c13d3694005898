package dukascopy

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/models"
	"fx-agent/src/storage"
)

const sourceName = "dukascopy"

// -----------------------------------------------------------------------------

// Source fetches hourly bi5 tick files from the Dukascopy datafeed.
type Source struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *Source {
	return &Source{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *Source) Name() string {
	return sourceName
}

// -----------------------------------------------------------------------------

// HourURL returns <base_url>/<PAIR>/<YYYY>/<MM0>/<DD>/<HH>h_ticks.bi5.
func (s *Source) HourURL(pair string, hour time.Time) string {
	hour = hour.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02dh_ticks.bi5",
		strings.TrimRight(s.Config.Network.BaseURL, "/"),
		strings.ToUpper(pair), hour.Year(), int(hour.Month())-1, hour.Day(), hour.Hour())
}

// -----------------------------------------------------------------------------

// DownloadRange fetches every hour in [start, end). Files already on disk with
// a non-empty body are skipped. Missing hours are counted, not failed.
func (s *Source) DownloadRange(ctx context.Context, pair string, start, end time.Time) (models.MDownloadStats, error) {
	pair = strings.ToUpper(pair)
	stats := models.MDownloadStats{Pair: pair}

	for cur := start.UTC().Truncate(time.Hour); cur.Before(end); cur = cur.Add(time.Hour) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		out := storage.RawTickPath(s.Config, pair, cur)
		if info, err := os.Stat(out); err == nil && info.Size() > 0 {
			stats.Skipped++
			continue
		}

		body, err := s.Network.Get(ctx, s.HourURL(pair, cur), nil)
		switch {
		case err == nil && len(body) == 0:
			stats.Missing++
			continue
		case helpers.IsMissingData(err):
			stats.Missing++
			continue
		case err != nil:
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			s.Logger.Error("[%s] failed to download %s: %v", pair, cur.Format("2006-01-02T15"), err)
			stats.Failed++
			continue
		}

		if err := helpers.WriteFileAtomic(out, body, 0o644); err != nil {
			return stats, helpers.NewStorageError(err, "failed to store %s", out)
		}
		stats.OK++
	}

	s.Logger.Info("[%s] download done ok=%d skipped=%d missing=%d failed=%d",
		pair, stats.OK, stats.Skipped, stats.Missing, stats.Failed)
	return stats, nil
}

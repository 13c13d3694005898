package interfaces

import (
	"context"
	"time"

	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------
// ITickSource downloads raw hourly tick files into the data root.
// -----------------------------------------------------------------------------

type ITickSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// DownloadRange fetches every hour in [start, end) for a pair.
	DownloadRange(ctx context.Context, pair string, start, end time.Time) (models.MDownloadStats, error)
}

package interfaces

import (
	"context"

	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------
// IDecisionCache keeps the most recent decisions per pair.
// -----------------------------------------------------------------------------

type IDecisionCache interface {

	// Put records a decision as the latest for its pair and timeframe.
	Put(ctx context.Context, d models.MDecision) error

	// -----------------------------------------------------------------------------

	// Latest returns the cached decision if it is younger than the cache TTL.
	Latest(ctx context.Context, pair, tf string) (models.MDecision, bool)

	// -----------------------------------------------------------------------------

	// History returns up to n past decisions for a pair, oldest first.
	History(ctx context.Context, pair string, n int) ([]models.MDecision, error)

	// -----------------------------------------------------------------------------

	Close() error
}

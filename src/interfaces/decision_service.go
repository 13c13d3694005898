package interfaces

import (
	"context"

	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------
// IDecisionService computes decisions from the latest stored features.
// -----------------------------------------------------------------------------

type IDecisionService interface {

	// Decision returns the decision for the last feature row of a pair.
	Decision(ctx context.Context, pair, tf string) (models.MDecision, error)

	// -----------------------------------------------------------------------------

	// Text renders the decision for the chat front end. It never fails: errors
	// become user-facing messages.
	Text(ctx context.Context, pair, tf string) string
}

package interfaces

import "fx-agent/src/models"

// -----------------------------------------------------------------------------
// IScorer turns a non-empty feature table into a directional call.
// Implementations fill Direction, Confidence, Factors and Path.
// -----------------------------------------------------------------------------

type IScorer interface {

	// Name identifies the path ("model" or "rules").
	Name() string

	// -----------------------------------------------------------------------------

	// Score evaluates the latest row of the table.
	Score(table *models.MFeatureTable) models.MDecision
}

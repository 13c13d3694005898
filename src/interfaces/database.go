package interfaces

import "fx-agent/src/models"

// -----------------------------------------------------------------------------
// IEventStore persists the flat event table. Upserts are keyed by id and the
// last write wins.
// -----------------------------------------------------------------------------

type IEventStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// Upsert merges a batch of events.
	Upsert(events []models.MEvent) error

	// -----------------------------------------------------------------------------

	// All returns every event ordered by timestamp.
	All() ([]models.MEvent, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

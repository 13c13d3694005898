package storage

import (
	"database/sql"
	"fmt"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------

// NewEventStore returns the event store selected by storage.db_type.
func NewEventStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IEventStore, error) {
	switch cfg.Storage.DBType {
	case "", "sqlite":
		return NewSQLiteEventStore(EventsPath(cfg), log), nil
	case "postgres":
		return NewPostgresEventStore(cfg, log)
	}
	return nil, fmt.Errorf("unsupported database type: %q", cfg.Storage.DBType)
}

// -----------------------------------------------------------------------------
// SQLite event store
// -----------------------------------------------------------------------------

type SQLiteEventStore struct {
	Path   string
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteEventStore(path string, log *logger.Logger) *SQLiteEventStore {
	return &SQLiteEventStore{Path: path, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *SQLiteEventStore) Initialize() error {
	db, err := openSQLite(s.Path)
	if err != nil {
		return helpers.NewStorageError(err, "failed to open event store %s", s.Path)
	}
	s.DB = db

	// Enable WAL mode for better concurrency
	if _, err := s.DB.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		s.Logger.Warning("Failed to enable WAL mode: %v", err)
	}
	if _, err := s.DB.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		s.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if _, err := s.DB.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			source TEXT,
			category TEXT,
			importance INTEGER,
			weight REAL,
			sentiment REAL,
			sentiment_w REAL,
			event TEXT,
			url TEXT
		)`); err != nil {
		return helpers.NewStorageError(err, "failed to create events table")
	}
	if _, err := s.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_events_ts ON events (ts)`); err != nil {
		return helpers.NewStorageError(err, "failed to create events index")
	}

	s.Logger.Info("Event store initialized at %s", s.Path)
	return nil
}

// -----------------------------------------------------------------------------

func (s *SQLiteEventStore) Upsert(events []models.MEvent) error {
	return upsertEvents(s.DB, `
		INSERT INTO events (id, ts, source, category, importance, weight, sentiment, sentiment_w, event, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ts = excluded.ts,
			source = excluded.source,
			category = excluded.category,
			importance = excluded.importance,
			weight = excluded.weight,
			sentiment = excluded.sentiment,
			sentiment_w = excluded.sentiment_w,
			event = excluded.event,
			url = excluded.url`, events)
}

// -----------------------------------------------------------------------------

func (s *SQLiteEventStore) All() ([]models.MEvent, error) {
	return selectEvents(s.DB, `
		SELECT id, ts, source, category, importance, weight, sentiment, sentiment_w, event, url
		FROM events ORDER BY ts, id`)
}

// -----------------------------------------------------------------------------

func (s *SQLiteEventStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Shared statements
// -----------------------------------------------------------------------------

func upsertEvents(db *sql.DB, query string, events []models.MEvent) error {
	if len(events) == 0 {
		return nil
	}
	if db == nil {
		return helpers.NewStorageError(nil, "event store is not initialized")
	}

	tx, err := db.Begin()
	if err != nil {
		return helpers.NewStorageError(err, "failed to begin event upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return helpers.NewStorageError(err, "failed to prepare event upsert")
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.ID, e.Timestamp.UTC().UnixMilli(), e.Source, e.Category, e.Importance,
			e.Weight, e.Sentiment, e.WeightedSentiment, e.Event, e.URL); err != nil {
			return helpers.NewStorageError(err, "failed to upsert event %s", e.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewStorageError(err, "failed to commit event upsert")
	}
	return nil
}

// -----------------------------------------------------------------------------

func selectEvents(db *sql.DB, query string) ([]models.MEvent, error) {
	if db == nil {
		return nil, helpers.NewStorageError(nil, "event store is not initialized")
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to query events")
	}
	defer rows.Close()

	var out []models.MEvent
	for rows.Next() {
		var (
			e                           models.MEvent
			ts                          int64
			source, category, ev, url   sql.NullString
			importance                  sql.NullInt64
			weight, sentiment, weighted sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &ts, &source, &category, &importance, &weight, &sentiment, &weighted, &ev, &url); err != nil {
			return nil, helpers.NewStorageError(err, "failed to scan event")
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.Source = source.String
		e.Category = category.String
		e.Importance = int(importance.Int64)
		e.Weight = weight.Float64
		e.Sentiment = sentiment.Float64
		e.WeightedSentiment = weighted.Float64
		e.Event = ev.String
		e.URL = url.String
		out = append(out, e)
	}
	return out, rows.Err()
}

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresEventStore keeps the event table in a schema named after the
// running executable.
type PostgresEventStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresEventStore(cfg *models.MConfig, log *logger.Logger) (*PostgresEventStore, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresEventStore{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresEventStore) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewStorageError(err, "failed to open postgres")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError(err, "failed to reach postgres")
	}
	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return helpers.NewStorageError(err, "failed to create schema %s", d.Schema)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			ts BIGINT NOT NULL,
			source TEXT,
			category TEXT,
			importance INTEGER,
			weight DOUBLE PRECISION,
			sentiment DOUBLE PRECISION,
			sentiment_w DOUBLE PRECISION,
			event TEXT,
			url TEXT
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError(err, "failed to create events table")
	}

	d.Logger.Info("PostgresEventStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresEventStore) table() string {
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier("events")
}

// -----------------------------------------------------------------------------

func (d *PostgresEventStore) Upsert(events []models.MEvent) error {
	return upsertEvents(d.DB, fmt.Sprintf(`
		INSERT INTO %s (id, ts, source, category, importance, weight, sentiment, sentiment_w, event, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			ts = EXCLUDED.ts,
			source = EXCLUDED.source,
			category = EXCLUDED.category,
			importance = EXCLUDED.importance,
			weight = EXCLUDED.weight,
			sentiment = EXCLUDED.sentiment,
			sentiment_w = EXCLUDED.sentiment_w,
			event = EXCLUDED.event,
			url = EXCLUDED.url
	`, d.table()), events)
}

// -----------------------------------------------------------------------------

func (d *PostgresEventStore) All() ([]models.MEvent, error) {
	return selectEvents(d.DB, fmt.Sprintf(`
		SELECT id, ts, source, category, importance, weight, sentiment, sentiment_w, event, url
		FROM %s ORDER BY ts, id
	`, d.table()))
}

// -----------------------------------------------------------------------------

func (d *PostgresEventStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

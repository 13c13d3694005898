package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------
// Bar partitions
// -----------------------------------------------------------------------------

// WriteBars replaces the partition at path with bars. Timestamps are stored as
// unix milliseconds and a NaN spread as NULL.
func WriteBars(path string, bars []models.MBar) error {
	return writePartition(path, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			CREATE TABLE bars (
				ts INTEGER PRIMARY KEY,
				open REAL NOT NULL,
				high REAL NOT NULL,
				low REAL NOT NULL,
				close REAL NOT NULL,
				vol REAL NOT NULL,
				spread REAL
			)`); err != nil {
			return fmt.Errorf("failed to create bars table: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO bars (ts, open, high, low, close, vol, spread)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ts) DO UPDATE SET
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close,
				vol = excluded.vol,
				spread = excluded.spread`)
		if err != nil {
			return fmt.Errorf("failed to prepare bar insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.Exec(b.Timestamp.UTC().UnixMilli(), b.Open, b.High, b.Low, b.Close, b.Volume, nullable(b.Spread)); err != nil {
				return fmt.Errorf("failed to insert bar %s: %w", b.Timestamp.Format(time.RFC3339), err)
			}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------

// ReadBars loads a bar partition ordered by timestamp. A missing file is a
// MissingDataError; a table without the OHLC columns is a MalformedInputError.
// Missing vol or spread columns read as 0 and NaN.
func ReadBars(path string) ([]models.MBar, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, helpers.NewMissingData("bar file %s not found", path)
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to open %s", path)
	}
	defer db.Close()

	cols, err := tableColumns(db, "bars")
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to inspect %s", path)
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	if !have["ts"] {
		return nil, helpers.NewMalformedInput(nil, "bar file %s has no ts column", path)
	}
	for _, c := range models.RequiredBarColumns {
		if !have[c] {
			return nil, helpers.NewMalformedInput(nil, "bar file %s is missing column %q", path, c)
		}
	}

	volExpr, spreadExpr := "0", "NULL"
	if have["vol"] {
		volExpr = "vol"
	}
	if have["spread"] {
		spreadExpr = "spread"
	}

	rows, err := db.Query(fmt.Sprintf(
		"SELECT ts, open, high, low, close, %s, %s FROM bars ORDER BY ts", volExpr, spreadExpr))
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to query %s", path)
	}
	defer rows.Close()

	var bars []models.MBar
	for rows.Next() {
		var (
			ts     int64
			b      models.MBar
			vol    sql.NullFloat64
			spread sql.NullFloat64
		)
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &vol, &spread); err != nil {
			return nil, helpers.NewMalformedInput(err, "failed to scan bar in %s", path)
		}
		b.Timestamp = time.UnixMilli(ts).UTC()
		if vol.Valid {
			b.Volume = vol.Float64
		}
		b.Spread = fromNullable(spread)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewStorageError(err, "failed to read %s", path)
	}
	return bars, nil
}

// -----------------------------------------------------------------------------

// ReadMinuteBars concatenates every M1 date partition of a pair in date order.
// A malformed partition is logged and skipped; the other dates still load.
func ReadMinuteBars(cfg *models.MConfig, log *logger.Logger, pair string) ([]models.MBar, error) {
	dir := MinuteBarDir(cfg, pair)
	files, err := filepath.Glob(filepath.Join(dir, "date=*", "part-*.sqlite"))
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to list %s", dir)
	}
	if len(files) == 0 {
		return nil, helpers.NewMissingData("no M1 partitions for %s under %s", pair, dir)
	}
	sort.Strings(files)

	var all []models.MBar
	for _, f := range files {
		bars, err := ReadBars(f)
		if helpers.IsMalformedInput(err) {
			log.Warning("[%s] skipping malformed M1 partition %s: %v", pair, f, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, bars...)
	}
	return all, nil
}

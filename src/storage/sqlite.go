package storage

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"fx-agent/src/helpers"

	_ "modernc.org/sqlite"
)

// openSQLite opens (creating parents) a database file with the given pragmas.
func openSQLite(path string, pragmas ...string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// writePartition builds a fresh database next to path with fill and renames
// it into place. Readers never observe a half-written partition.
func writePartition(path string, fill func(tx *sql.Tx) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return helpers.NewStorageError(err, "failed to create directory for %s", path)
	}

	tmp := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())
	os.Remove(tmp)
	defer os.Remove(tmp)

	db, err := openSQLite(tmp, "PRAGMA journal_mode = DELETE;", "PRAGMA synchronous = NORMAL;")
	if err != nil {
		return helpers.NewStorageError(err, "failed to open %s", tmp)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return helpers.NewStorageError(err, "failed to begin %s", tmp)
	}
	if err := fill(tx); err != nil {
		tx.Rollback()
		db.Close()
		return helpers.NewStorageError(err, "failed to write %s", path)
	}
	if err := tx.Commit(); err != nil {
		db.Close()
		return helpers.NewStorageError(err, "failed to commit %s", path)
	}
	if err := db.Close(); err != nil {
		return helpers.NewStorageError(err, "failed to close %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		return helpers.NewStorageError(err, "failed to move %s into place", path)
	}
	return nil
}

// -----------------------------------------------------------------------------

// tableColumns lists the columns of a table in declaration order.
func tableColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// -----------------------------------------------------------------------------

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// nullable maps NaN to NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// fromNullable maps NULL to NaN.
func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

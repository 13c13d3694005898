package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------
// Feature tables
// -----------------------------------------------------------------------------

// WriteFeatures stores a feature table as one REAL column per feature keyed by
// the bar timestamp. Column order is preserved.
func WriteFeatures(path string, table *models.MFeatureTable) error {
	if table == nil {
		return helpers.NewMissingData("no feature table to write to %s", path)
	}

	return writePartition(path, func(tx *sql.Tx) error {
		defs := []string{"ts INTEGER PRIMARY KEY"}
		names := []string{"ts"}
		marks := []string{"?"}
		for _, c := range table.Columns {
			defs = append(defs, quoteIdent(c)+" REAL")
			names = append(names, quoteIdent(c))
			marks = append(marks, "?")
		}

		if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE features (%s)", strings.Join(defs, ", "))); err != nil {
			return fmt.Errorf("failed to create features table: %w", err)
		}

		stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO features (%s) VALUES (%s)",
			strings.Join(names, ", "), strings.Join(marks, ", ")))
		if err != nil {
			return fmt.Errorf("failed to prepare feature insert: %w", err)
		}
		defer stmt.Close()

		args := make([]interface{}, len(names))
		for i, ts := range table.Timestamps {
			args[0] = ts.UTC().UnixMilli()
			for j, c := range table.Columns {
				args[j+1] = nullable(table.Values[c][i])
			}
			if _, err := stmt.Exec(args...); err != nil {
				return fmt.Errorf("failed to insert feature row %s: %w", ts.Format(time.RFC3339), err)
			}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------

// ReadFeatures loads a feature table written by WriteFeatures.
func ReadFeatures(path string) (*models.MFeatureTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, helpers.NewMissingData("feature file %s not found", path)
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to open %s", path)
	}
	defer db.Close()

	cols, err := tableColumns(db, "features")
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to inspect %s", path)
	}
	if len(cols) == 0 || cols[0] != "ts" {
		return nil, helpers.NewMalformedInput(nil, "feature file %s has no ts column", path)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM features ORDER BY ts", strings.Join(quoted, ", ")))
	if err != nil {
		return nil, helpers.NewStorageError(err, "failed to query %s", path)
	}
	defer rows.Close()

	features := cols[1:]
	var index []time.Time
	values := make(map[string][]float64, len(features))

	var ts int64
	cells := make([]sql.NullFloat64, len(features))
	dest := make([]interface{}, len(cols))
	dest[0] = &ts
	for i := range cells {
		dest[i+1] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, helpers.NewMalformedInput(err, "failed to scan feature row in %s", path)
		}
		index = append(index, time.UnixMilli(ts).UTC())
		for i, c := range features {
			values[c] = append(values[c], fromNullable(cells[i]))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewStorageError(err, "failed to read %s", path)
	}

	table := models.NewFeatureTable(index)
	for _, c := range features {
		v := values[c]
		if v == nil {
			v = []float64{}
		}
		table.Set(c, v)
	}
	return table, nil
}

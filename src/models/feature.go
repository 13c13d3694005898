package models

import (
	"math"
	"time"
)

// MFeatureTable is a columnar feature table, one row per bar timestamp.
// Undefined values (insufficient history) are NaN.
type MFeatureTable struct {
	Timestamps []time.Time
	Columns    []string
	Values     map[string][]float64
}

// MFeatureRow is a single row of a feature table.
type MFeatureRow struct {
	Timestamp time.Time
	Values    map[string]float64
}

// NewFeatureTable returns an empty table over the given index.
func NewFeatureTable(index []time.Time) *MFeatureTable {
	return &MFeatureTable{
		Timestamps: index,
		Columns:    []string{},
		Values:     make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (t *MFeatureTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Timestamps)
}

// Set adds or replaces a column. The column keeps its original position on replace.
func (t *MFeatureTable) Set(name string, values []float64) {
	if _, ok := t.Values[name]; !ok {
		t.Columns = append(t.Columns, name)
	}
	t.Values[name] = values
}

// Column returns the values of a column and whether it exists.
func (t *MFeatureTable) Column(name string) ([]float64, bool) {
	v, ok := t.Values[name]
	return v, ok
}

// Row returns row i.
func (t *MFeatureTable) Row(i int) MFeatureRow {
	row := MFeatureRow{
		Timestamp: t.Timestamps[i],
		Values:    make(map[string]float64, len(t.Columns)),
	}
	for _, c := range t.Columns {
		row.Values[c] = t.Values[c][i]
	}
	return row
}

// Latest returns the last row.
func (t *MFeatureTable) Latest() MFeatureRow {
	return t.Row(t.Len() - 1)
}

// Get returns the value of a column, or def when it is missing or undefined.
func (r MFeatureRow) Get(name string, def float64) float64 {
	v, ok := r.Values[name]
	if !ok || math.IsNaN(v) {
		return def
	}
	return v
}

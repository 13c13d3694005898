package events

import (
	"sort"

	"fx-agent/src/models"
)

// Table is the deduplicated event table. Rows are keyed by id and the last
// write for an id wins. Ordering by timestamp happens only on read.
type Table struct {
	rows map[string]models.MEvent
}

// -----------------------------------------------------------------------------

func NewTable(initial ...models.MEvent) *Table {
	t := &Table{rows: make(map[string]models.MEvent, len(initial))}
	t.Upsert(initial...)
	return t
}

// -----------------------------------------------------------------------------

// Upsert merges a batch and returns how many ids were new.
func (t *Table) Upsert(batch ...models.MEvent) int {
	added := 0
	for _, e := range batch {
		if _, ok := t.rows[e.ID]; !ok {
			added++
		}
		t.rows[e.ID] = e
	}
	return added
}

// -----------------------------------------------------------------------------

func (t *Table) Len() int {
	return len(t.rows)
}

// -----------------------------------------------------------------------------

// Sorted returns every event ordered by timestamp, then id.
func (t *Table) Sorted() []models.MEvent {
	out := make([]models.MEvent, 0, len(t.rows))
	for _, e := range t.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// -----------------------------------------------------------------------------

// ByCategory returns the sorted events of one category.
func (t *Table) ByCategory(category string) []models.MEvent {
	var out []models.MEvent
	for _, e := range t.Sorted() {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"fx-agent/src/models"

	"github.com/google/uuid"
)

// importanceWeights scales raw sentiment by event importance.
var importanceWeights = map[int]float64{
	3: 1.0,
	2: 0.35,
	1: 0.15,
}

// ImportanceWeight returns the sentiment weight for an importance level.
func ImportanceWeight(importance int) float64 {
	if w, ok := importanceWeights[importance]; ok {
		return w
	}
	return 0.2
}

// -----------------------------------------------------------------------------

// Normalize fills derived fields of an event produced by a fetcher:
// weight from importance when unset, weighted sentiment, a lower-case
// category, UTC timestamp and a deterministic id when none was given.
func Normalize(e models.MEvent) models.MEvent {
	e.Timestamp = e.Timestamp.UTC()
	e.Category = strings.ToLower(strings.TrimSpace(e.Category))
	if e.Weight == 0 {
		e.Weight = ImportanceWeight(e.Importance)
	}
	e.WeightedSentiment = e.Sentiment * e.Weight
	if e.ID == "" {
		key := strings.Join([]string{e.Source, e.URL, e.Event, e.Timestamp.Format(time.RFC3339Nano)}, "|")
		e.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
	}
	return e
}

// -----------------------------------------------------------------------------

// ReadJSONLines decodes one event per line. Blank lines are skipped; rows
// without a timestamp are rejected.
func ReadJSONLines(r io.Reader) ([]models.MEvent, error) {
	var out []models.MEvent

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var e models.MEvent
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("failed to decode event on line %d: %w", line, err)
		}
		if e.Timestamp.IsZero() {
			return nil, fmt.Errorf("event on line %d has no timestamp", line)
		}
		out = append(out, Normalize(e))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return out, nil
}

package datasource

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/models"
)

// MultiPairManager downloads several pairs from one source concurrently.
type MultiPairManager struct {
	Source      interfaces.ITickSource
	Logger      *logger.Logger
	Parallelism int
}

// -----------------------------------------------------------------------------

func NewMultiPairManager(source interfaces.ITickSource, log *logger.Logger) *MultiPairManager {
	return &MultiPairManager{
		Source:      source,
		Logger:      log,
		Parallelism: 4,
	}
}

// -----------------------------------------------------------------------------

// DownloadAll runs DownloadRange for each pair and returns the stats sorted by
// pair. The first error is returned after every pair has finished.
func (m *MultiPairManager) DownloadAll(ctx context.Context, pairs []string, start, end time.Time) ([]models.MDownloadStats, error) {
	limit := m.Parallelism
	if limit <= 0 {
		limit = 1
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  []models.MDownloadStats
		firstErr error
		slots    = make(chan struct{}, limit)
	)

	for _, pair := range pairs {
		pair := strings.ToUpper(pair)
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			stats, err := m.Source.DownloadRange(ctx, pair, start, end)

			mu.Lock()
			defer mu.Unlock()
			results = append(results, stats)
			if err != nil {
				m.Logger.Error("Source %s failed for %s: %v", m.Source.Name(), pair, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Pair < results[j].Pair })
	return results, firstErr
}

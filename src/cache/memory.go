package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"fx-agent/src/logger"
	"fx-agent/src/models"
	"fx-agent/src/utils"
)

// -----------------------------------------------------------------------------
// MemoryCache keeps decisions in process, one ring buffer of history per pair.
// -----------------------------------------------------------------------------

type MemoryCache struct {
	Latests     map[string]models.MDecision
	Histories   map[string]*utils.RingBuffer[models.MDecision]
	TTL         time.Duration
	HistorySize int
	Logger      *logger.Logger
	now         func() time.Time
	mu          sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMemoryCache(cfg *models.MConfig, log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		Latests:     make(map[string]models.MDecision),
		Histories:   make(map[string]*utils.RingBuffer[models.MDecision]),
		TTL:         time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		HistorySize: cfg.Cache.HistorySize,
		Logger:      log,
		now:         time.Now,
	}
}

// -----------------------------------------------------------------------------

func latestKey(pair, tf string) string {
	return strings.ToUpper(pair) + "|" + tf
}

// -----------------------------------------------------------------------------

func (mc *MemoryCache) Put(_ context.Context, d models.MDecision) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = mc.now()
	}
	mc.Latests[latestKey(d.Pair, d.Timeframe)] = d

	pair := strings.ToUpper(d.Pair)
	if _, ok := mc.Histories[pair]; !ok {
		mc.Histories[pair] = utils.NewRingBuffer[models.MDecision](mc.HistorySize)
	}
	mc.Histories[pair].Append(d)
	return nil
}

// -----------------------------------------------------------------------------

func (mc *MemoryCache) Latest(_ context.Context, pair, tf string) (models.MDecision, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	d, ok := mc.Latests[latestKey(pair, tf)]
	if !ok {
		return models.MDecision{}, false
	}
	if mc.TTL > 0 && mc.now().Sub(d.CreatedAt) > mc.TTL {
		return models.MDecision{}, false
	}
	return d, true
}

// -----------------------------------------------------------------------------

func (mc *MemoryCache) History(_ context.Context, pair string, n int) ([]models.MDecision, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	buffer, ok := mc.Histories[strings.ToUpper(pair)]
	if !ok {
		return []models.MDecision{}, nil
	}
	if n <= 0 {
		return buffer.GetAll(), nil
	}
	return buffer.GetLatest(n), nil
}

// -----------------------------------------------------------------------------

// Close clears all data
func (mc *MemoryCache) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.Latests = make(map[string]models.MDecision)
	mc.Histories = make(map[string]*utils.RingBuffer[models.MDecision])
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/redis/go-redis/v9"
)

// -----------------------------------------------------------------------------
// RedisCache shares decisions between processes. The latest decision lives
// under a TTL key and the history in a capped list.
// -----------------------------------------------------------------------------

type RedisCache struct {
	RDB         *redis.Client
	TTL         time.Duration
	HistorySize int
	Logger      *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisCache(cfg *models.MConfig, log *logger.Logger) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   0,
	})
	return &RedisCache{
		RDB:         rdb,
		TTL:         time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		HistorySize: cfg.Cache.HistorySize,
		Logger:      log,
	}
}

// -----------------------------------------------------------------------------

func decisionKey(pair, tf string) string {
	return fmt.Sprintf("fx-decision-%s-%s", strings.ToUpper(pair), tf)
}

func historyKey(pair string) string {
	return fmt.Sprintf("fx-decision-history-%s", strings.ToUpper(pair))
}

// -----------------------------------------------------------------------------

func (rc *RedisCache) Put(ctx context.Context, d models.MDecision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	encoded, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	size := rc.HistorySize
	if size <= 0 {
		size = 100
	}

	pipe := rc.RDB.TxPipeline()
	pipe.Set(ctx, decisionKey(d.Pair, d.Timeframe), encoded, rc.TTL)
	pipe.RPush(ctx, historyKey(d.Pair), encoded)
	pipe.LTrim(ctx, historyKey(d.Pair), int64(-size), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache decision for %s: %w", d.Pair, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (rc *RedisCache) Latest(ctx context.Context, pair, tf string) (models.MDecision, bool) {
	res, err := rc.RDB.Get(ctx, decisionKey(pair, tf)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.Logger.Warning("[%s] decision cache error: %v", pair, err)
		}
		return models.MDecision{}, false
	}

	var dto models.MDecision
	if err := json.Unmarshal([]byte(res), &dto); err != nil {
		rc.Logger.Warning("[%s] decision cache decode error: %v", pair, err)
		return models.MDecision{}, false
	}
	return dto, true
}

// -----------------------------------------------------------------------------

func (rc *RedisCache) History(ctx context.Context, pair string, n int) ([]models.MDecision, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	items, err := rc.RDB.LRange(ctx, historyKey(pair), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read decision history for %s: %w", pair, err)
	}

	out := make([]models.MDecision, 0, len(items))
	for _, item := range items {
		var dto models.MDecision
		if err := json.Unmarshal([]byte(item), &dto); err != nil {
			rc.Logger.Warning("[%s] skipping undecodable history entry: %v", pair, err)
			continue
		}
		out = append(out, dto)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (rc *RedisCache) Close() error {
	return rc.RDB.Close()
}

package cache

import (
	"context"
	"time"

	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/models"
)

// NewDecisionCache returns a redis cache when cache.redis_addr is set and the
// server answers, otherwise an in-process cache.
func NewDecisionCache(cfg *models.MConfig, log *logger.Logger) interfaces.IDecisionCache {
	if cfg.Cache.RedisAddr == "" {
		return NewMemoryCache(cfg, log)
	}

	rc := NewRedisCache(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.RDB.Ping(ctx).Err(); err != nil {
		log.Warning("Redis at %s unavailable (%v), using in-memory decision cache", cfg.Cache.RedisAddr, err)
		rc.Close()
		return NewMemoryCache(cfg, log)
	}

	log.Info("Using redis decision cache at %s", cfg.Cache.RedisAddr)
	return rc
}

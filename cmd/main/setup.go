package main

import (
	"errors"
	"io/fs"
	"os"

	"fx-agent/src/cache"
	"fx-agent/src/config"
	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/models"
	"fx-agent/src/pipeline"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

// loadConfig reads .env when present, then the YAML file (defaults when it is
// missing), then the FX_* environment overrides.
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	conf, err := config.NewConfig(path)
	if err != nil {
		if _, statErr := os.Stat(path); !errors.Is(statErr, fs.ErrNotExist) {
			return nil, err
		}
		conf = config.Default()
	}

	if err := conf.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return conf, nil
}

// -----------------------------------------------------------------------------

// setupCache picks Redis when configured and reachable, memory otherwise.
func setupCache(cfg *models.MConfig, appLogger *logger.Logger) interfaces.IDecisionCache {
	cacheLogger := logger.NewLogger(cfg, "DecisionCache")
	c := cache.NewDecisionCache(cfg, cacheLogger)
	appLogger.Info("Decision cache ready (history %d, ttl %ds)", cfg.Cache.HistorySize, cfg.Cache.TTLSeconds)
	return c
}

// -----------------------------------------------------------------------------

func setupDecisionService(cfg *models.MConfig) interfaces.IDecisionService {
	return pipeline.NewDecisionService(cfg, logger.NewLogger(cfg, "DecisionService"))
}

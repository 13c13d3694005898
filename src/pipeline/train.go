package pipeline

import (
	"os"
	"strings"
	"time"

	"fx-agent/src/classifier"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"
	"fx-agent/src/storage"
	"fx-agent/src/trainer"
)

// -----------------------------------------------------------------------------

// Train fits a classifier on the stored features and writes the artifact.
// Nothing is written when training fails.
func Train(cfg *models.MConfig, log *logger.Logger, pair, tf string, opts trainer.Options) (*classifier.Artifact, error) {
	defer metrics.ObserveStage("train", time.Now())

	pair = strings.ToUpper(pair)
	if tf == "" {
		tf = cfg.Features.Timeframe
	}

	table, err := storage.ReadFeatures(storage.FeaturesPath(cfg, pair, tf))
	if err != nil {
		return nil, err
	}

	artifact, err := trainer.NewTrainer(cfg, log).Train(pair, tf, table, opts)
	if err != nil {
		return nil, err
	}

	path := storage.ModelPath(cfg, pair)
	if err := artifact.Save(path); err != nil {
		return nil, err
	}
	log.Info("[%s] model saved to %s (val accuracy %.3f)", pair, path, artifact.Metadata.CV.ValMean)
	return artifact, nil
}

// -----------------------------------------------------------------------------

// ShouldRetrain reports whether a model needs (re)training and why. There is
// nothing to train without features; a missing model, features newer than the
// model, or a model at least minDays old all trigger training.
func ShouldRetrain(modelPath, featuresPath string, minDays int, now time.Time) (bool, string) {
	featInfo, err := os.Stat(featuresPath)
	if err != nil {
		return false, "features file not found"
	}

	modelInfo, err := os.Stat(modelPath)
	if err != nil {
		return true, "no model yet"
	}

	if featInfo.ModTime().After(modelInfo.ModTime()) {
		return true, "features updated after model"
	}

	if days := int(now.Sub(modelInfo.ModTime()).Hours() / 24); days >= minDays {
		return true, "model is stale"
	}
	return false, "model is up to date"
}

// -----------------------------------------------------------------------------

// AutoTrain trains only when ShouldRetrain says so, or when force is set.
func AutoTrain(cfg *models.MConfig, log *logger.Logger, pair, tf string, force bool, now time.Time) (bool, error) {
	pair = strings.ToUpper(pair)
	if tf == "" {
		tf = cfg.Features.Timeframe
	}

	retrain, reason := ShouldRetrain(storage.ModelPath(cfg, pair), storage.FeaturesPath(cfg, pair, tf), cfg.Training.RetrainMinDays, now)
	if force {
		retrain, reason = true, "forced"
	}
	log.Info("[%s] retrain=%v (%s)", pair, retrain, reason)
	if !retrain {
		return false, nil
	}

	if _, err := Train(cfg, log, pair, tf, trainer.Options{}); err != nil {
		return false, err
	}
	return true, nil
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fx-agent/src/decision"
	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"
	"fx-agent/src/storage"
)

// Apology is returned when producing the decision text fails unexpectedly.
const Apology = "Sorry, something went wrong while preparing the forecast. Please try again later."

// DataNotAvailable formats the message for a pair whose features do not exist yet.
func DataNotAvailable(pair, tf string) string {
	return fmt.Sprintf("%s %s data is not available yet. Please run a data update first.", pair, tf)
}

// -----------------------------------------------------------------------------

// LatestDecision scores the last stored feature row of a pair. The scorer is
// loaded per call so that a freshly trained model is picked up.
func LatestDecision(cfg *models.MConfig, log *logger.Logger, pair, tf string) (models.MDecision, *models.MFeatureTable, error) {
	defer metrics.ObserveStage("decide", time.Now())

	pair = strings.ToUpper(pair)
	if tf == "" {
		tf = cfg.Features.Timeframe
	}

	table, err := storage.ReadFeatures(storage.FeaturesPath(cfg, pair, tf))
	if err != nil {
		return models.MDecision{}, nil, err
	}

	engine := decision.NewEngine(cfg, log, decision.NewScorer(cfg, log, storage.ModelPath(cfg, pair), time.Now()))
	defer engine.Close()

	return engine.Decide(pair, tf, table), table, nil
}

// -----------------------------------------------------------------------------

// LatestDecisionText renders the latest decision for the chat front end.
// Missing features become a "not available yet" message and any panic becomes
// the apology.
func LatestDecisionText(cfg *models.MConfig, log *logger.Logger, pair, tf string) string {
	pair = strings.ToUpper(pair)
	if tf == "" {
		tf = cfg.Features.Timeframe
	}

	handler := helpers.NewErrorHandler(log)
	return handler.Recover("decision text "+pair, Apology, func() string {
		d, table, err := LatestDecision(cfg, log, pair, tf)
		if err != nil {
			if helpers.IsMissingData(err) {
				log.Warning("[%s] %v", pair, err)
				return DataNotAvailable(pair, tf)
			}
			handler.Handle(err, "decision "+pair)
			return Apology
		}

		var latest models.MFeatureRow
		if table.Len() > 0 {
			latest = table.Latest()
		}
		return decision.FormatText(d, latest)
	})
}

// -----------------------------------------------------------------------------

// DecisionService serves decisions from the files under data_root.
type DecisionService struct {
	Config *models.MConfig
	Logger *logger.Logger
}

func NewDecisionService(cfg *models.MConfig, log *logger.Logger) *DecisionService {
	return &DecisionService{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *DecisionService) Decision(_ context.Context, pair, tf string) (models.MDecision, error) {
	d, _, err := LatestDecision(s.Config, s.Logger, pair, tf)
	return d, err
}

// -----------------------------------------------------------------------------

func (s *DecisionService) Text(_ context.Context, pair, tf string) string {
	return LatestDecisionText(s.Config, s.Logger, pair, tf)
}

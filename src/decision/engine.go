package decision

import (
	"time"

	"fx-agent/src/classifier"
	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"
)

// InsufficientData is the single factor of a decision on an empty table.
const InsufficientData = "insufficient data"

// Engine produces decisions through the scorer chosen at construction.
type Engine struct {
	Config *models.MConfig
	Logger *logger.Logger
	Scorer interfaces.IScorer
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewEngine(cfg *models.MConfig, log *logger.Logger, scorer interfaces.IScorer) *Engine {
	return &Engine{Config: cfg, Logger: log, Scorer: scorer, now: time.Now}
}

// -----------------------------------------------------------------------------

// NewScorer returns a model scorer when the artifact at modelPath loads and
// opens, else the rule scorer. It never fails.
func NewScorer(cfg *models.MConfig, log *logger.Logger, modelPath string, now time.Time) interfaces.IScorer {
	rules := NewRuleScorer(cfg)
	if modelPath == "" {
		return rules
	}

	maxAge := time.Duration(cfg.Training.MaxAgeDays) * 24 * time.Hour
	artifact, err := classifier.LoadArtifact(modelPath, maxAge, now)
	if err != nil {
		log.Info("No usable model (%v), using rules", err)
		return rules
	}

	clf, err := classifier.Open(artifact, cfg.ONNX.SharedLibraryPath)
	if err != nil {
		log.Warning("Failed to open model %s: %v, using rules", modelPath, err)
		return rules
	}

	log.Info("Loaded %s model %s trained at %s", artifact.Kind, modelPath, artifact.Metadata.TrainedAt.Format(time.RFC3339))
	return &ModelScorer{
		Artifact:   artifact,
		Classifier: clf,
		Fallback:   rules,
		Config:     cfg.Decision,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Decide evaluates the latest row. An empty table short-circuits to hold with
// zero confidence and high risk.
func (e *Engine) Decide(pair, tf string, table *models.MFeatureTable) models.MDecision {
	d := models.MDecision{
		Direction:  models.DirectionHold,
		Confidence: 0,
		Factors:    []string{InsufficientData},
		RiskLevel:  models.RiskHigh,
		Path:       models.ScorerRules,
	}

	if table.Len() > 0 {
		d = e.Scorer.Score(table)
		d.RiskLevel = AssessRisk(e.Config.Decision, table)
		latest := table.Latest()
		d.BarTime = latest.Timestamp
		d.Close = latest.Get("close", 0)
		d.Analysis = Analysis(latest, d)
	}

	d.Pair = pair
	d.Timeframe = tf
	d.CreatedAt = e.now().UTC()
	metrics.Decisions.WithLabelValues(pair, d.Direction, d.Path).Inc()
	return d
}

// -----------------------------------------------------------------------------

// Close releases the classifier behind a model scorer.
func (e *Engine) Close() error {
	if m, ok := e.Scorer.(*ModelScorer); ok {
		return m.Classifier.Close()
	}
	return nil
}

package trainer

import (
	"fmt"
	"math"
	"time"

	"fx-agent/src/analysis/core"
	"fx-agent/src/classifier"
	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/google/uuid"
)

// MinTrainingRows is the floor below which training always fails.
const MinTrainingRows = 100

// NoLabel marks rows without a complete forward window.
const NoLabel = -1

// -----------------------------------------------------------------------------

// Trainer fits a classifier on a feature table.
type Trainer struct {
	Config *models.MConfig
	Logger *logger.Logger
	now    func() time.Time
}

// Options narrow the training range. Zero values mean unbounded.
type Options struct {
	Start time.Time
	End   time.Time
}

// Fold is one forward-chaining split: train on [0, TrainEnd), validate on
// [TrainEnd, ValEnd).
type Fold struct {
	TrainEnd int
	ValEnd   int
}

// -----------------------------------------------------------------------------

func NewTrainer(cfg *models.MConfig, log *logger.Logger) *Trainer {
	return &Trainer{Config: cfg, Logger: log, now: time.Now}
}

// -----------------------------------------------------------------------------

// Labels classifies the forward return close[i+h]/close[i]-1 as buy (2) above
// buy, sell (0) below sell, else hold (1). The last h rows get NoLabel.
func Labels(closes []float64, horizon int, buy, sell float64) []int {
	out := make([]int, len(closes))
	for i := range closes {
		j := i + horizon
		if j >= len(closes) || math.IsNaN(closes[i]) || math.IsNaN(closes[j]) || closes[i] == 0 {
			out[i] = NoLabel
			continue
		}
		ret := core.CalculateChangePercent(closes[j], closes[i])
		switch {
		case ret > buy:
			out[i] = 2
		case ret < sell:
			out[i] = 0
		default:
			out[i] = 1
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// TimeSeriesSplit returns n_splits forward-chaining folds over n rows. Each
// validation block has n/(splits+1) rows and every training row precedes it.
func TimeSeriesSplit(n, splits int) ([]Fold, error) {
	testSize := n / (splits + 1)
	if splits < 2 || testSize < 1 {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", n, splits)
	}

	folds := make([]Fold, 0, splits)
	for k := 0; k < splits; k++ {
		valStart := n - (splits-k)*testSize
		folds = append(folds, Fold{TrainEnd: valStart, ValEnd: valStart + testSize})
	}
	return folds, nil
}

// -----------------------------------------------------------------------------

// Train labels the table, cross-validates and fits the final model on every
// labeled row. Fewer than the minimum labeled rows is an InsufficientDataError.
func (t *Trainer) Train(pair, tf string, table *models.MFeatureTable, opts Options) (*classifier.Artifact, error) {
	tc := t.Config.Training

	closes, ok := table.Column("close")
	if !ok {
		return nil, helpers.NewMissingData("feature table for %s %s has no close column", pair, tf)
	}

	// Labels only look forward inside the training range, so prices at or
	// after opts.End never leak into the last rows.
	lo, hi := 0, table.Len()
	for lo < hi && outside(table.Timestamps[lo], opts) {
		lo++
	}
	for hi > lo && outside(table.Timestamps[hi-1], opts) {
		hi--
	}
	labels := Labels(closes[lo:hi], tc.ForwardBars, tc.BuyThreshold, tc.SellThreshold)

	columns := table.Columns
	var X [][]float64
	var y []int
	var first, last time.Time
	for i := lo; i < hi; i++ {
		ts := table.Timestamps[i]
		if labels[i-lo] == NoLabel {
			continue
		}
		row := make([]float64, len(columns))
		for j, c := range columns {
			v := table.Values[c][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			row[j] = v
		}
		if len(X) == 0 {
			first = ts
		}
		last = ts
		X = append(X, row)
		y = append(y, labels[i])
	}

	minRows := MinTrainingRows
	if tc.MinRows > minRows {
		minRows = tc.MinRows
	}
	if len(X) < minRows {
		return nil, helpers.NewInsufficientData("insufficient data for %s %s: %d labeled rows, need at least %d",
			pair, tf, len(X), minRows)
	}

	counts := map[string]int{}
	for _, label := range y {
		counts[classifier.ClassNames[label]]++
	}
	t.Logger.Info("Training %s %s on %d rows (%s to %s), classes %v",
		pair, tf, len(X), first.Format(time.RFC3339), last.Format(time.RFC3339), counts)

	fit := classifier.FitOptions{Epochs: tc.Epochs, LearningRate: tc.LearningRate, L2: tc.L2}

	cv, err := t.crossValidate(X, y, tc.Splits, fit)
	if err != nil {
		return nil, err
	}

	model, err := classifier.FitSoftmax(X, y, fit)
	if err != nil {
		return nil, fmt.Errorf("failed to fit final model: %w", err)
	}

	return &classifier.Artifact{
		Kind:           classifier.KindSoftmax,
		FeatureColumns: append([]string(nil), columns...),
		Softmax:        model,
		Metadata: classifier.Metadata{
			RunID:       uuid.New().String(),
			Pair:        pair,
			Timeframe:   tf,
			ForwardBars: tc.ForwardBars,
			TrainStart:  first,
			TrainEnd:    last,
			Rows:        len(X),
			ClassCounts: counts,
			CV:          cv,
			TrainedAt:   t.now().UTC(),
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (t *Trainer) crossValidate(X [][]float64, y []int, splits int, fit classifier.FitOptions) (classifier.CVScores, error) {
	var cv classifier.CVScores

	folds, err := TimeSeriesSplit(len(X), splits)
	if err != nil {
		return cv, err
	}

	for k, f := range folds {
		m, err := classifier.FitSoftmax(X[:f.TrainEnd], y[:f.TrainEnd], fit)
		if err != nil {
			return cv, fmt.Errorf("failed to fit fold %d: %w", k+1, err)
		}
		c := &classifier.SoftmaxClassifier{Model: m}
		trainAcc := accuracy(c, X[:f.TrainEnd], y[:f.TrainEnd])
		valAcc := accuracy(c, X[f.TrainEnd:f.ValEnd], y[f.TrainEnd:f.ValEnd])
		cv.TrainScores = append(cv.TrainScores, trainAcc)
		cv.ValScores = append(cv.ValScores, valAcc)
		t.Logger.Info("Fold %d: train acc=%.3f, val acc=%.3f", k+1, trainAcc, valAcc)
	}

	cv.TrainMean, _ = core.CalculateMeanStd(cv.TrainScores, 0)
	cv.ValMean, cv.ValStd = core.CalculateMeanStd(cv.ValScores, 0)
	return cv, nil
}

// -----------------------------------------------------------------------------

func accuracy(c *classifier.SoftmaxClassifier, X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	hits := 0
	for i, x := range X {
		p, err := c.PredictProba(x)
		if err == nil && classifier.Argmax(p) == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(X))
}

func outside(ts time.Time, opts Options) bool {
	if !opts.Start.IsZero() && ts.Before(opts.Start) {
		return true
	}
	return !opts.End.IsZero() && !ts.Before(opts.End)
}

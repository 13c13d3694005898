package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/interfaces"
	"fx-agent/src/models"
)

const (
	KindSoftmax = "softmax"
	KindONNX    = "onnx"

	// NumClasses is sell, hold, buy.
	NumClasses = 3
)

// ClassNames in label order.
var ClassNames = []string{models.DirectionSell, models.DirectionHold, models.DirectionBuy}

// -----------------------------------------------------------------------------

// Artifact is the serialized output of training.
type Artifact struct {
	Kind           string        `json:"kind"`
	FeatureColumns []string      `json:"feature_columns"`
	Softmax        *SoftmaxModel `json:"softmax,omitempty"`
	ONNX           *ONNXModel    `json:"onnx,omitempty"`
	Metadata       Metadata      `json:"metadata"`
}

// ONNXModel references an externally trained network. Path is relative to
// the artifact file unless absolute.
type ONNXModel struct {
	Path   string `json:"path"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

type Metadata struct {
	RunID       string         `json:"run_id"`
	Pair        string         `json:"pair"`
	Timeframe   string         `json:"timeframe"`
	ForwardBars int            `json:"forward_bars"`
	TrainStart  time.Time      `json:"train_start"`
	TrainEnd    time.Time      `json:"train_end"`
	Rows        int            `json:"rows"`
	ClassCounts map[string]int `json:"class_counts"`
	CV          CVScores       `json:"cv"`
	TrainedAt   time.Time      `json:"trained_at"`
}

// CVScores holds accuracy per forward-chaining fold.
type CVScores struct {
	TrainScores []float64 `json:"train_scores"`
	ValScores   []float64 `json:"val_scores"`
	TrainMean   float64   `json:"train_mean"`
	ValMean     float64   `json:"val_mean"`
	ValStd      float64   `json:"val_std"`
}

// -----------------------------------------------------------------------------

// Validate checks that the artifact is internally consistent.
func (a *Artifact) Validate() error {
	if len(a.FeatureColumns) == 0 {
		return fmt.Errorf("artifact has no feature columns")
	}
	switch a.Kind {
	case KindSoftmax:
		if a.Softmax == nil {
			return fmt.Errorf("softmax artifact without model")
		}
		return a.Softmax.validate(len(a.FeatureColumns))
	case KindONNX:
		if a.ONNX == nil || a.ONNX.Path == "" {
			return fmt.Errorf("onnx artifact without model path")
		}
		return nil
	}
	return fmt.Errorf("unknown artifact kind %q", a.Kind)
}

// -----------------------------------------------------------------------------

// Save writes the artifact atomically.
func (a *Artifact) Save(path string) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return helpers.WriteFileAtomic(path, data, 0o644)
}

// -----------------------------------------------------------------------------

// LoadArtifact reads and validates an artifact. maxAge > 0 rejects artifacts
// trained before now-maxAge. Every failure is a ModelError.
func LoadArtifact(path string, maxAge time.Duration, now time.Time) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helpers.NewModelError(err, "failed to read artifact %s", path)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, helpers.NewModelError(err, "corrupt artifact %s", path)
	}
	if err := a.Validate(); err != nil {
		return nil, helpers.NewModelError(err, "invalid artifact %s", path)
	}
	if maxAge > 0 && now.Sub(a.Metadata.TrainedAt) > maxAge {
		return nil, helpers.NewModelError(nil, "stale artifact %s trained at %s", path,
			a.Metadata.TrainedAt.Format(time.RFC3339))
	}

	if a.ONNX != nil && !filepath.IsAbs(a.ONNX.Path) {
		a.ONNX.Path = filepath.Join(filepath.Dir(path), a.ONNX.Path)
	}
	return &a, nil
}

// -----------------------------------------------------------------------------

// Open returns a classifier for the artifact. onnxLib is the onnxruntime
// shared library, used only for onnx artifacts.
func Open(a *Artifact, onnxLib string) (interfaces.IClassifier, error) {
	switch a.Kind {
	case KindSoftmax:
		return &SoftmaxClassifier{Model: a.Softmax}, nil
	case KindONNX:
		c, err := NewONNXClassifier(onnxLib, a.ONNX, len(a.FeatureColumns))
		if err != nil {
			return nil, helpers.NewModelError(err, "failed to open onnx model %s", a.ONNX.Path)
		}
		return c, nil
	}
	return nil, helpers.NewModelError(nil, "unknown artifact kind %q", a.Kind)
}

// -----------------------------------------------------------------------------

// Project orders row values by the artifact columns. Missing, undefined and
// infinite values become 0.
func (a *Artifact) Project(row models.MFeatureRow) []float64 {
	x := make([]float64, len(a.FeatureColumns))
	for i, c := range a.FeatureColumns {
		if v := row.Get(c, 0); !math.IsInf(v, 0) {
			x[i] = v
		}
	}
	return x
}

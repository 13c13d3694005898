package classifier

import (
	"fmt"
	"math"

	"fx-agent/src/analysis/core"
)

// SoftmaxModel is a multinomial logistic regression over standardized inputs.
type SoftmaxModel struct {
	Means   []float64   `json:"means"`
	Scales  []float64   `json:"scales"`
	Weights [][]float64 `json:"weights"` // [class][feature]
	Bias    []float64   `json:"bias"`
}

// FitOptions control batch gradient descent.
type FitOptions struct {
	Epochs       int
	LearningRate float64
	L2           float64
}

// -----------------------------------------------------------------------------

func (m *SoftmaxModel) validate(nFeatures int) error {
	if len(m.Means) != nFeatures || len(m.Scales) != nFeatures {
		return fmt.Errorf("scaler has %d/%d entries, want %d", len(m.Means), len(m.Scales), nFeatures)
	}
	if len(m.Weights) != NumClasses || len(m.Bias) != NumClasses {
		return fmt.Errorf("model has %d classes, want %d", len(m.Weights), NumClasses)
	}
	for k, w := range m.Weights {
		if len(w) != nFeatures {
			return fmt.Errorf("class %d has %d weights, want %d", k, len(w), nFeatures)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *SoftmaxModel) standardize(x []float64) []float64 {
	z := make([]float64, len(x))
	for j, v := range x {
		z[j] = core.CalculateZScore(v, m.Means[j], m.Scales[j])
	}
	return z
}

// probabilities returns softmax(W z + b).
func (m *SoftmaxModel) probabilities(z []float64) []float64 {
	logits := make([]float64, NumClasses)
	maxLogit := math.Inf(-1)
	for k := range logits {
		s := m.Bias[k]
		for j, v := range z {
			s += m.Weights[k][j] * v
		}
		logits[k] = s
		maxLogit = math.Max(maxLogit, s)
	}

	sum := 0.0
	for k, l := range logits {
		logits[k] = math.Exp(l - maxLogit)
		sum += logits[k]
	}
	for k := range logits {
		logits[k] /= sum
	}
	return logits
}

// -----------------------------------------------------------------------------

// FitSoftmax trains on rows X with labels y in [0, NumClasses). Weights start
// at zero so the result is deterministic.
func FitSoftmax(X [][]float64, y []int, opts FitOptions) (*SoftmaxModel, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("need matching non-empty X and y, got %d and %d", len(X), len(y))
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), d)
		}
		if y[i] < 0 || y[i] >= NumClasses {
			return nil, fmt.Errorf("label %d out of range at row %d", y[i], i)
		}
	}

	m := &SoftmaxModel{
		Means:   make([]float64, d),
		Scales:  make([]float64, d),
		Weights: make([][]float64, NumClasses),
		Bias:    make([]float64, NumClasses),
	}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, std := core.CalculateMeanStd(col, 0)
		m.Means[j] = mean
		m.Scales[j] = std
		if std == 0 || math.IsNaN(std) {
			m.Scales[j] = 1
		}
	}
	for k := range m.Weights {
		m.Weights[k] = make([]float64, d)
	}

	Z := make([][]float64, len(X))
	for i, row := range X {
		Z[i] = m.standardize(row)
	}

	n := float64(len(Z))
	gradW := make([][]float64, NumClasses)
	for k := range gradW {
		gradW[k] = make([]float64, d)
	}
	gradB := make([]float64, NumClasses)

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for k := range gradW {
			for j := range gradW[k] {
				gradW[k][j] = 0
			}
			gradB[k] = 0
		}

		for i, z := range Z {
			p := m.probabilities(z)
			for k := 0; k < NumClasses; k++ {
				diff := p[k]
				if k == y[i] {
					diff -= 1
				}
				gradB[k] += diff
				for j, v := range z {
					gradW[k][j] += diff * v
				}
			}
		}

		for k := 0; k < NumClasses; k++ {
			m.Bias[k] -= opts.LearningRate * gradB[k] / n
			for j := range m.Weights[k] {
				g := gradW[k][j]/n + opts.L2*m.Weights[k][j]
				m.Weights[k][j] -= opts.LearningRate * g
			}
		}
	}
	return m, nil
}

// -----------------------------------------------------------------------------

// SoftmaxClassifier serves a trained SoftmaxModel.
type SoftmaxClassifier struct {
	Model *SoftmaxModel
}

func (c *SoftmaxClassifier) PredictProba(x []float64) ([]float64, error) {
	if len(x) != len(c.Model.Means) {
		return nil, fmt.Errorf("got %d features, model expects %d", len(x), len(c.Model.Means))
	}
	p := c.Model.probabilities(c.Model.standardize(x))
	for _, v := range p {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("model produced NaN probabilities")
		}
	}
	return p, nil
}

func (c *SoftmaxClassifier) Close() error { return nil }

// -----------------------------------------------------------------------------

// Argmax returns the index of the largest probability.
func Argmax(p []float64) int {
	best := 0
	for k := range p {
		if p[k] > p[best] {
			best = k
		}
	}
	return best
}

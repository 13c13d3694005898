package interfaces

// -----------------------------------------------------------------------------
// IClassifier maps a feature vector to class probabilities
// {0: sell, 1: hold, 2: buy}.
// -----------------------------------------------------------------------------

type IClassifier interface {

	// PredictProba returns one probability per class.
	PredictProba(x []float64) ([]float64, error)

	// -----------------------------------------------------------------------------

	// Close releases native resources, if any.
	Close() error
}

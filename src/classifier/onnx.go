package classifier

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// -----------------------------------------------------------------------------

// ONNXClassifier runs a network with input [1, n] float32 and output [1, 3].
type ONNXClassifier struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

func NewONNXClassifier(libPath string, model *ONNXModel, nFeatures int) (*ONNXClassifier, error) {
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputName, outputName := model.Input, model.Output
	if inputName == "" {
		inputName = "input"
	}
	if outputName == "" {
		outputName = "probabilities"
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(nFeatures)), make([]float32, nFeatures))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, NumClasses))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(model.Path,
		[]string{inputName}, []string{outputName},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &ONNXClassifier{session: session, input: inputTensor, output: outputTensor}, nil
}

// -----------------------------------------------------------------------------

func (c *ONNXClassifier) PredictProba(x []float64) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.input.GetData()
	if len(x) != len(data) {
		return nil, fmt.Errorf("got %d features, model expects %d", len(x), len(data))
	}
	for i, v := range x {
		data[i] = float32(v)
	}

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := c.output.GetData()
	p := make([]float64, len(out))
	for i, v := range out {
		p[i] = float64(v)
	}
	return p, nil
}

// -----------------------------------------------------------------------------

func (c *ONNXClassifier) Close() error {
	if c.session != nil {
		c.session.Destroy()
	}
	if c.input != nil {
		c.input.Destroy()
	}
	if c.output != nil {
		c.output.Destroy()
	}
	return nil
}

package detections

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nutrivision/food-detection-service/models"
)

// SessionConfig describes the model geometry and the initialization-time
// execution options. All values come from external configuration.
type SessionConfig struct {
	InputSize      int
	NumClasses     int
	NumPredictions int
	InputName      string
	OutputName     string
	// IntraOpThreads caps ONNX Runtime's intra-op parallelism; 0 leaves
	// the runtime default in place.
	IntraOpThreads int
}

func (c SessionConfig) validate() error {
	switch {
	case c.InputSize <= 0:
		return models.NewConfigurationError(fmt.Sprintf("input size %d must be positive", c.InputSize), nil)
	case c.NumClasses <= 0:
		return models.NewConfigurationError(fmt.Sprintf("class count %d must be positive", c.NumClasses), nil)
	case c.NumPredictions <= 0:
		return models.NewConfigurationError(fmt.Sprintf("prediction count %d must be positive", c.NumPredictions), nil)
	case c.InputName == "" || c.OutputName == "":
		return models.NewConfigurationError("input and output tensor names are required", nil)
	}
	return nil
}

// ModelSession wraps a loaded ONNX Runtime session with preallocated input
// and output tensors that are rebound on every Run. It implements Runner.
//
// The tensors are a single-writer arena: the scheduler guarantees at most
// one in-flight Run per session, so no locking happens here.
type ModelSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	cfg     SessionConfig
}

// NewModelSession loads modelPath and binds fixed-shape tensors. A model
// whose input or output does not match cfg fails here with a
// ConfigurationError; nothing about shapes is rechecked per frame.
func NewModelSession(modelPath string, cfg SessionConfig) (*ModelSession, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, models.NewConfigurationError("creating session options", err)
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, models.NewConfigurationError("setting intra-op threads", err)
		}
	}

	inputShape := ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize))
	outputShape := ort.NewShape(1, int64(4+cfg.NumClasses), int64(cfg.NumPredictions))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, models.NewConfigurationError("creating input tensor", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, models.NewConfigurationError("creating output tensor", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, models.NewConfigurationError(
			fmt.Sprintf("loading model %s (expects input [1,3,%d,%d], output [1,%d,%d])",
				modelPath, cfg.InputSize, cfg.InputSize, 4+cfg.NumClasses, cfg.NumPredictions),
			err)
	}

	return &ModelSession{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		cfg:     cfg,
	}, nil
}

// Run implements Runner. The returned slice aliases the reused output
// tensor and is only valid until the next Run.
func (m *ModelSession) Run(input []float32) ([]float32, error) {
	dst := m.input.GetData()
	if len(input) != len(dst) {
		return nil, models.NewInferenceError(
			fmt.Sprintf("input tensor length %d, expected %d", len(input), len(dst)), nil)
	}
	copy(dst, input)

	if err := m.session.Run(); err != nil {
		return nil, models.NewInferenceError("session run", err)
	}
	return m.output.GetData(), nil
}

// Destroy releases the session and its tensors.
func (m *ModelSession) Destroy() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

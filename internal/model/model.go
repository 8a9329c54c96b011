package model

import (
	"fmt"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"

	"stockbot/internal/features"
)

// Tensor names as emitted by the training pipeline's ONNX export.
const (
	inputName            = "float_input"
	classifierOutputName = "probabilities"
	regressorOutputName  = "variable"
)

// Initialize loads the onnxruntime shared library and sets up the
// environment. Call once before creating any model; pair with Shutdown.
func Initialize(libraryPath string) error {
	if libraryPath == "" {
		switch runtime.GOOS {
		case "windows":
			libraryPath = "onnxruntime.dll"
		case "darwin":
			libraryPath = "libonnxruntime.dylib"
		default:
			libraryPath = "/usr/lib/libonnxruntime.so"
		}
	}
	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

func Shutdown() {
	_ = ort.DestroyEnvironment()
}

// session owns one ONNX session plus its pre-allocated single-row input
// and output tensors. Inference copies the vector in and runs in place.
type session struct {
	sess   *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

func newSession(modelPath, outputName string, featureCount, outputLen int) (*session, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(featureCount)), make([]float32, featureCount))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(outputLen)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	sess, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName}, []string{outputName},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("open model %s: %w", modelPath, err)
	}
	return &session{sess: sess, input: inputTensor, output: outputTensor}, nil
}

func (s *session) run(vec []float32) ([]float32, error) {
	copy(s.input.GetData(), vec)
	if err := s.sess.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return s.output.GetData(), nil
}

func (s *session) close() {
	if s == nil {
		return
	}
	if s.sess != nil {
		s.sess.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// Classifier wraps the binary up/down model. PredictProba returns the
// probability of the positive (price up) class.
type Classifier struct {
	schema Schema
	sess   *session
}

func NewClassifier(modelPath string, schema Schema) (*Classifier, error) {
	sess, err := newSession(modelPath, classifierOutputName, len(schema.Features), 2)
	if err != nil {
		return nil, err
	}
	return &Classifier{schema: schema, sess: sess}, nil
}

func (c *Classifier) PredictProba(row features.Row) (float64, error) {
	vec, err := c.schema.Vector(row)
	if err != nil {
		return 0, err
	}
	out, err := c.sess.run(vec)
	if err != nil {
		return 0, err
	}
	return float64(out[1]), nil
}

func (c *Classifier) Close() {
	c.sess.close()
}

// Regressor wraps the expected-return model.
type Regressor struct {
	schema Schema
	sess   *session
}

func NewRegressor(modelPath string, schema Schema) (*Regressor, error) {
	sess, err := newSession(modelPath, regressorOutputName, len(schema.Features), 1)
	if err != nil {
		return nil, err
	}
	return &Regressor{schema: schema, sess: sess}, nil
}

func (r *Regressor) Predict(row features.Row) (float64, error) {
	vec, err := r.schema.Vector(row)
	if err != nil {
		return 0, err
	}
	out, err := r.sess.run(vec)
	if err != nil {
		return 0, err
	}
	return float64(out[0]), nil
}

func (r *Regressor) Close() {
	r.sess.close()
}

package classify

import (
	"context"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// ActiveScorer is the learned-model capability the fused classifier consults
// in the ambiguous band: the probability that the sprint icon is active.
type ActiveScorer interface {
	PredictActive(ctx context.Context, frame *image.RGBA) (float64, error)
}

// Model runs a small exported ONNX classifier over the capture region. The
// artifact is produced offline by the training collaborator and consumed
// read-only here. Input contract: NCHW float32, RGB, values scaled to [0,1].
type Model struct {
	mu      sync.Mutex // session tensors are reused across runs
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	w, h    int
	classes int
	logger  *slog.Logger
}

// NewModel loads the ONNX artifact and prepares a reusable session. Missing
// or malformed artifacts and unexpected tensor shapes are *ConfigError.
// libPath optionally points at the onnxruntime shared library.
func NewModel(path string, inputW, inputH int, libPath string, logger *slog.Logger) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ConfigError{Artifact: path, Reason: "model not readable", Err: err}
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, &ConfigError{Artifact: path, Reason: "onnxruntime init failed", Err: err}
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, &ConfigError{Artifact: path, Reason: "model metadata unreadable", Err: err}
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, &ConfigError{Artifact: path, Reason: "model must have one input and at least one output"}
	}
	if len(inputs[0].Dimensions) != 4 {
		return nil, &ConfigError{Artifact: path, Reason: "model input is not NCHW"}
	}

	// Binary heads export either a 2-logit softmax row or one sigmoid scalar.
	classes := 2
	outDims := outputs[0].Dimensions
	if n := len(outDims); n > 0 && outDims[n-1] > 0 {
		classes = int(outDims[n-1])
	}
	if classes != 1 && classes != 2 {
		return nil, &ConfigError{Artifact: path, Reason: "model output is not a binary head"}
	}

	inTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, &ConfigError{Artifact: path, Reason: "input tensor allocation failed", Err: err}
	}
	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(classes)))
	if err != nil {
		inTensor.Destroy()
		return nil, &ConfigError{Artifact: path, Reason: "output tensor allocation failed", Err: err}
	}
	session, err := ort.NewAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{inTensor}, []ort.ArbitraryTensor{outTensor}, nil)
	if err != nil {
		inTensor.Destroy()
		outTensor.Destroy()
		return nil, &ConfigError{Artifact: path, Reason: "session creation failed", Err: err}
	}
	if logger != nil {
		logger.Info("onnx model loaded", "path", path, "input", inputs[0].Name, "output", outputs[0].Name, "classes", classes)
	}
	return &Model{session: session, input: inTensor, output: outTensor, w: inputW, h: inputH, classes: classes, logger: logger}, nil
}

// PredictActive resizes the frame to the model input size and returns the
// probability of the "active" class. Failures here are transient: the caller
// folds them to Unknown and the loop continues.
func (m *Model) PredictActive(ctx context.Context, frame *image.RGBA) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resized := imaging.Resize(frame, m.w, m.h, imaging.Lanczos)

	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.input.GetData()
	plane := m.w * m.h
	for y := 0; y < m.h; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+m.w*4]
		for x := 0; x < m.w; x++ {
			i := x * 4
			off := y*m.w + x
			data[off] = float32(row[i]) / 255
			data[plane+off] = float32(row[i+1]) / 255
			data[2*plane+off] = float32(row[i+2]) / 255
		}
	}
	if err := m.session.Run(); err != nil {
		return 0, err
	}
	// The exported head emits raw logits: two for a softmax head, one for
	// a sigmoid head.
	out := m.output.GetData()
	var p float64
	if m.classes == 2 && len(out) >= 2 {
		ea := math.Exp(float64(out[0]))
		eb := math.Exp(float64(out[1]))
		p = eb / (ea + eb)
	} else if len(out) >= 1 {
		p = 1 / (1 + math.Exp(-float64(out[0])))
	}
	return p, nil
}

// Close releases the session and its tensors.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
}

var _ ActiveScorer = (*Model)(nil)

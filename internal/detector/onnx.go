package detector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Classifier runs a sequence classifier over encoded input and returns raw logits.
type Classifier interface {
	Classify(ids, mask []int64) ([]float32, error)
	Close() error
}

// ONNXClassifier wraps an onnxruntime session with preallocated tensors.
// Inference is serialized because the tensors are shared.
type ONNXClassifier struct {
	session *ort.AdvancedSession
	ids     *ort.Tensor[int64]
	mask    *ort.Tensor[int64]
	output  *ort.Tensor[float32]

	mu sync.Mutex
}

// NewONNXClassifier initialises the runtime and opens the bundle's model.
func NewONNXClassifier(bundle Bundle, maxLength int) (*ONNXClassifier, error) {
	libPath := sharedLibraryPath(bundle.Dir)
	if libPath == "" {
		return nil, errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	if _, err := os.Stat(bundle.ModelPath()); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", bundle.ModelPath(), err)
	}

	inputShape := ort.NewShape(1, int64(maxLength))
	ids, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input ids tensor: %w", err)
	}
	mask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		_ = ids.Destroy()
		return nil, fmt.Errorf("allocate attention mask tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(bundle.Labels))))
	if err != nil {
		_ = ids.Destroy()
		_ = mask.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		bundle.ModelPath(),
		[]string{bundle.Inputs.IDs, bundle.Inputs.Mask},
		[]string{bundle.Output},
		[]ort.Value{ids, mask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		_ = ids.Destroy()
		_ = mask.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXClassifier{session: session, ids: ids, mask: mask, output: output}, nil
}

// Classify copies the encoded input into the session tensors and runs the model.
func (c *ONNXClassifier) Classify(ids, mask []int64) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, errors.New("onnx session closed")
	}

	copy(c.ids.GetData(), ids)
	copy(c.mask.GetData(), mask)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	logits := make([]float32, len(c.output.GetData()))
	copy(logits, c.output.GetData())
	return logits, nil
}

// Close releases the session and its tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := errors.Join(c.session.Destroy(), c.ids.Destroy(), c.mask.Destroy(), c.output.Destroy())
	c.session = nil
	return err
}

// sharedLibraryPath prefers ONNXRUNTIME_SHARED_LIBRARY_PATH, then tries common install locations.
func sharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{"libonnxruntime.so", "libonnxruntime.dylib", "onnxruntime.dll"}
	dirs := []string{bundleDir, filepath.Join(bundleDir, "lib"), "/usr/local/lib", "/usr/lib", "/opt/homebrew/lib"}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

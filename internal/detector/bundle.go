package detector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BundleManifestFile is the manifest expected at the root of a model bundle directory.
const BundleManifestFile = "bundle.yaml"

// Bundle describes an exported sequence-classification model on disk.
type Bundle struct {
	Dir       string   `yaml:"-"`
	Model     string   `yaml:"model"`
	Vocab     string   `yaml:"vocab"`
	LowerCase *bool    `yaml:"lower_case"`
	MaxLength int      `yaml:"max_length"`
	Labels    []string `yaml:"labels"`
	AILabel   string   `yaml:"ai_label"`
	Inputs    struct {
		IDs  string `yaml:"ids"`
		Mask string `yaml:"mask"`
	} `yaml:"inputs"`
	Output string `yaml:"output"`
}

// LoadBundle reads bundle.yaml from dir and fills defaults.
func LoadBundle(dir string) (Bundle, error) {
	if strings.TrimSpace(dir) == "" {
		return Bundle{}, errors.New("model bundle dir is empty")
	}

	data, err := os.ReadFile(filepath.Join(dir, BundleManifestFile))
	if err != nil {
		return Bundle{}, fmt.Errorf("read bundle manifest: %w", err)
	}

	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle manifest: %w", err)
	}
	bundle.Dir = dir

	if bundle.Model == "" {
		bundle.Model = "model.onnx"
	}
	if bundle.Vocab == "" {
		bundle.Vocab = "vocab.txt"
	}
	if bundle.LowerCase == nil {
		lower := true
		bundle.LowerCase = &lower
	}
	if len(bundle.Labels) == 0 {
		bundle.Labels = []string{"human", "ai"}
	}
	if bundle.AILabel == "" {
		bundle.AILabel = "ai"
	}
	if bundle.Inputs.IDs == "" {
		bundle.Inputs.IDs = "input_ids"
	}
	if bundle.Inputs.Mask == "" {
		bundle.Inputs.Mask = "attention_mask"
	}
	if bundle.Output == "" {
		bundle.Output = "logits"
	}

	if _, err := bundle.AIIndex(); err != nil {
		return Bundle{}, err
	}

	return bundle, nil
}

// AIIndex returns the logit index of the AI label.
func (b Bundle) AIIndex() (int, error) {
	for i, label := range b.Labels {
		if strings.EqualFold(label, b.AILabel) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("ai label %q not present in labels %v", b.AILabel, b.Labels)
}

// ModelPath returns the absolute path of the ONNX file.
func (b Bundle) ModelPath() string {
	return filepath.Join(b.Dir, b.Model)
}

// VocabPath returns the absolute path of the tokenizer vocabulary.
func (b Bundle) VocabPath() string {
	return filepath.Join(b.Dir, b.Vocab)
}

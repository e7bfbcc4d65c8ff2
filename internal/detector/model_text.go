package detector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// ModelTextScorer takes the AI-class softmax probability of a pretrained sequence classifier.
type ModelTextScorer struct {
	tokenizer  Tokenizer
	classifier Classifier
	aiIndex    int
	maxLength  int
	opts       options
}

// NewModelTextScorer assembles a scorer from an already loaded tokenizer and classifier.
func NewModelTextScorer(tokenizer Tokenizer, classifier Classifier, aiIndex, maxLength int, opts ...Option) *ModelTextScorer {
	if maxLength <= 0 {
		maxLength = 512
	}
	return &ModelTextScorer{
		tokenizer:  tokenizer,
		classifier: classifier,
		aiIndex:    aiIndex,
		maxLength:  maxLength,
		opts:       newOptions(opts),
	}
}

// LoadModelTextScorer reads a model bundle from dir and opens its ONNX session.
// maxLength overrides the bundle's max_length when positive.
func LoadModelTextScorer(dir string, maxLength int, opts ...Option) (*ModelTextScorer, error) {
	bundle, err := LoadBundle(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}
	if maxLength <= 0 {
		maxLength = bundle.MaxLength
	}
	if maxLength <= 0 {
		maxLength = 512
	}

	tokenizer, err := LoadWordPieceVocab(bundle.VocabPath(), *bundle.LowerCase)
	if err != nil {
		return nil, fmt.Errorf("%w: load tokenizer: %v", ErrModelFailure, err)
	}

	classifier, err := NewONNXClassifier(bundle, maxLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}

	aiIndex, _ := bundle.AIIndex()
	return NewModelTextScorer(tokenizer, classifier, aiIndex, maxLength, opts...), nil
}

// Name identifies the scorer in logs and metrics.
func (s *ModelTextScorer) Name() string {
	return "model-text"
}

// Score runs inference; every failure is reported as ErrModelFailure.
func (s *ModelTextScorer) Score(_ context.Context, text string) (models.Verdict, error) {
	if s.tokenizer == nil || s.classifier == nil {
		return models.Verdict{}, fmt.Errorf("%w: model not loaded", ErrModelFailure)
	}

	ids, mask := s.tokenizer.Encode(text, s.maxLength)
	if len(ids) == 0 {
		return models.Verdict{}, fmt.Errorf("%w: tokenizer produced no input", ErrModelFailure)
	}

	logits, err := s.classifier.Classify(ids, mask)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}

	probabilities, err := Softmax(logits)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}
	if s.aiIndex < 0 || s.aiIndex >= len(probabilities) {
		return models.Verdict{}, fmt.Errorf("%w: ai label index %d outside %d logits", ErrModelFailure, s.aiIndex, len(probabilities))
	}

	aiProbability := probabilities[s.aiIndex]
	metadata := textMetadata(text, strings.Fields(text))

	return newVerdict(aiProbability, Explain(aiProbability), metadata, models.AnalysisModelText, s.opts.clock()), nil
}

// Close releases the underlying classifier.
func (s *ModelTextScorer) Close() error {
	if s.classifier == nil {
		return nil
	}
	return s.classifier.Close()
}

// Softmax converts logits into probabilities using the max-shift for stability.
func Softmax(logits []float32) ([]float64, error) {
	if len(logits) == 0 {
		return nil, errors.New("no logits")
	}

	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if math.IsNaN(float64(l)) {
			return nil, errors.New("logits contain NaN")
		}
		maxLogit = math.Max(maxLogit, float64(l))
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}

package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/truthguard-go-api/internal/models"
	"github.com/noah-isme/truthguard-go-api/pkg/ai"
)

// LLMTextScorer delegates the judgement to a chat model.
type LLMTextScorer struct {
	classifier ai.AuthorshipClassifier
	opts       options
}

// NewLLMTextScorer wraps an authorship classifier as a Scorer.
func NewLLMTextScorer(classifier ai.AuthorshipClassifier, opts ...Option) *LLMTextScorer {
	return &LLMTextScorer{classifier: classifier, opts: newOptions(opts)}
}

// Name identifies the scorer in logs and metrics.
func (s *LLMTextScorer) Name() string {
	return "llm-text"
}

// Score asks the classifier and reports any failure as ErrModelFailure.
func (s *LLMTextScorer) Score(ctx context.Context, text string) (models.Verdict, error) {
	if s.classifier == nil {
		return models.Verdict{}, fmt.Errorf("%w: classifier not configured", ErrModelFailure)
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}

	explanation := Explain(result.AIProbability)
	if rationale := strings.TrimSpace(result.Rationale); rationale != "" {
		explanation = explanation + " " + rationale
	}

	metadata := textMetadata(text, strings.Fields(text))
	if len(result.Signals) > 0 {
		metadata["signals"] = result.Signals
	}

	return newVerdict(result.AIProbability, explanation, metadata, models.AnalysisLLMText, s.opts.clock()), nil
}

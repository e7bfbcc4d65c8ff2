package detector

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

const (
	lengthFactorWords = 50.0
	lengthFactorCap   = 0.6
	formalWeight      = 0.4
	jitterMin         = 0.1
	jitterMax         = 0.2
	heuristicCeiling  = 0.95
)

var formalTerms = map[string]struct{}{
	"furthermore":  {},
	"moreover":     {},
	"consequently": {},
	"therefore":    {},
	"artificial":   {},
	"intelligence": {},
}

// HeuristicTextScorer estimates AI likelihood from text length, formal vocabulary
// density and a random jitter. Results are not reproducible unless a seeded random
// source is supplied.
type HeuristicTextScorer struct {
	opts options
}

// NewHeuristicTextScorer constructs the word-pattern text scorer.
func NewHeuristicTextScorer(opts ...Option) *HeuristicTextScorer {
	return &HeuristicTextScorer{opts: newOptions(opts)}
}

// Name identifies the scorer in logs and metrics.
func (s *HeuristicTextScorer) Name() string {
	return "heuristic-text"
}

// Score never fails; an empty text scores on jitter alone.
func (s *HeuristicTextScorer) Score(_ context.Context, text string) (models.Verdict, error) {
	words := strings.Fields(text)
	wordCount := len(words)

	formalCount := 0
	for _, word := range words {
		if _, ok := formalTerms[strings.ToLower(word)]; ok {
			formalCount++
		}
	}

	lengthFactor := math.Min(float64(wordCount)/lengthFactorWords, lengthFactorCap)
	formalFactor := float64(formalCount) / float64(max(wordCount, 1)) * formalWeight
	jitter := uniform(s.opts.random, jitterMin, jitterMax)
	aiProbability := math.Min(heuristicCeiling, lengthFactor+formalFactor+jitter)

	metadata := textMetadata(text, words)
	metadata["formal_terms"] = formalCount

	explanation := fmt.Sprintf("%s %d formal terms detected.", Explain(aiProbability), formalCount)

	return newVerdict(aiProbability, explanation, metadata, models.AnalysisHeuristicText, s.opts.clock()), nil
}

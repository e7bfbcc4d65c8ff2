// Package detector scores text and image payloads for signs of AI generation.
//
// Every variant satisfies Scorer and returns a models.Verdict. The variant used for
// a payload kind is chosen once, when the service is wired, and never per request.
package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

var (
	// ErrInvalidInput indicates a missing or malformed payload field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDecodeFailure indicates the image payload could not be decoded.
	ErrDecodeFailure = errors.New("invalid image data")
	// ErrModelFailure indicates tokenization or inference failed.
	ErrModelFailure = errors.New("model inference failed")
)

// Scorer produces an authenticity verdict for a single payload.
type Scorer interface {
	Name() string
	Score(ctx context.Context, payload string) (models.Verdict, error)
}

// Clock returns the current time; scorers stamp verdicts with it.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

type band struct {
	min    float64
	level  string
	reason string
}

var explanationBands = []band{
	{min: 0.8, level: "VERY HIGH", reason: "Strong AI patterns detected"},
	{min: 0.6, level: "HIGH", reason: "Multiple AI indicators present"},
	{min: 0.4, level: "MEDIUM", reason: "Some AI-like characteristics detected"},
	{min: 0.2, level: "LOW", reason: "Mostly human-like patterns"},
	{min: 0, level: "VERY LOW", reason: "Strong human writing indicators"},
}

// RiskLevel returns the band label for an AI probability.
func RiskLevel(aiProbability float64) string {
	return bandFor(aiProbability).level
}

// Explain renders the shared natural-language explanation for an AI probability.
func Explain(aiProbability float64) string {
	b := bandFor(aiProbability)
	characteristics := "human-like writing patterns"
	if aiProbability > models.AIThreshold {
		characteristics = "characteristics typical of AI generation"
	}
	return fmt.Sprintf("%s AI probability. %s. Content shows %s.", b.level, b.reason, characteristics)
}

func bandFor(p float64) band {
	for _, b := range explanationBands {
		if p >= b.min {
			return b
		}
	}
	return explanationBands[len(explanationBands)-1]
}

// newVerdict stamps the risk band into metadata and derives the verdict.
func newVerdict(aiProbability float64, explanation string, metadata map[string]interface{}, analysisType string, at time.Time) models.Verdict {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["risk_level"] = RiskLevel(models.ClampProbability(aiProbability))
	return models.NewVerdict(aiProbability, explanation, metadata, analysisType, at)
}

// textMetadata collects the descriptive facts reported for every text verdict.
func textMetadata(text string, words []string) map[string]interface{} {
	sentences := 0
	for _, part := range strings.Split(text, ".") {
		if strings.TrimSpace(part) != "" {
			sentences++
		}
	}

	avgWordLength := 0.0
	if len(words) > 0 {
		total := 0
		for _, word := range words {
			total += utf8.RuneCountInString(word)
		}
		avgWordLength = float64(total) / float64(len(words))
	}

	return map[string]interface{}{
		"word_count":      len(words),
		"character_count": utf8.RuneCountInString(text),
		"sentence_count":  sentences,
		"avg_word_length": avgWordLength,
	}
}

package models

import (
	"math"
	"time"
)

// AIThreshold is the probability above which content is classified as AI generated.
// A probability of exactly AIThreshold classifies as human.
const AIThreshold = 0.5

// Analysis types reported on verdicts.
const (
	AnalysisHeuristicText = "heuristic_text_detection"
	AnalysisModelText     = "enhanced_text_detection"
	AnalysisLLMText       = "llm_text_detection"
	AnalysisImage         = "image_authenticity"
)

// Verdict is the result of scoring a single payload. Build it with NewVerdict so the
// derived probabilities stay consistent.
type Verdict struct {
	IsAIGenerated    bool                   `json:"is_ai_generated"`
	AIProbability    float64                `json:"ai_probability"`
	HumanProbability float64                `json:"human_probability"`
	ConfidenceScore  float64                `json:"confidence_score"`
	Explanation      string                 `json:"explanation"`
	Metadata         map[string]interface{} `json:"metadata"`
	Timestamp        time.Time              `json:"timestamp"`
	AnalysisType     string                 `json:"analysis_type,omitempty"`
}

// NewVerdict derives every verdict field from the AI probability, which is clamped to [0, 1].
func NewVerdict(aiProbability float64, explanation string, metadata map[string]interface{}, analysisType string, at time.Time) Verdict {
	ai := ClampProbability(aiProbability)
	human := 1 - ai
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return Verdict{
		IsAIGenerated:    ai > AIThreshold,
		AIProbability:    ai,
		HumanProbability: human,
		ConfidenceScore:  math.Max(ai, human),
		Explanation:      explanation,
		Metadata:         metadata,
		Timestamp:        at,
		AnalysisType:     analysisType,
	}
}

// ClampProbability bounds p to [0, 1]; NaN becomes 0.
func ClampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Label returns "ai" or "human" for metrics and feed events.
func (v Verdict) Label() string {
	if v.IsAIGenerated {
		return "ai"
	}
	return "human"
}

// Stats holds running totals of scoring outcomes for the lifetime of the process.
type Stats struct {
	TotalDetections int64  `json:"total_detections"`
	AIDetected      int64  `json:"ai_detected"`
	HumanDetected   int64  `json:"human_detected"`
	AccuracyRate    string `json:"accuracy_rate"`
}

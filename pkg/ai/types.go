package ai

import "context"

// AuthorshipResult is the structured judgement returned by an AI authorship classifier.
type AuthorshipResult struct {
	AIProbability float64                `json:"ai_probability"`
	Rationale     string                 `json:"rationale"`
	Signals       []string               `json:"signals,omitempty"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
}

// AuthorshipClassifier estimates whether a text was written by a language model.
type AuthorshipClassifier interface {
	Classify(ctx context.Context, text string) (AuthorshipResult, error)
}

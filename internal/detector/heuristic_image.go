package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

const (
	imageScoreMin = 0.1
	imageScoreMax = 0.8
)

// DecodedImage describes an image payload after base64 and header decoding.
type DecodedImage struct {
	Width    int
	Height   int
	Format   string
	MimeType string
	Size     int
}

// HeuristicImageScorer validates an image payload and samples a manipulation score.
// Pixel-level analysis is not implemented; the score is drawn from a fixed range.
type HeuristicImageScorer struct {
	opts options
}

// NewHeuristicImageScorer constructs the image scorer.
func NewHeuristicImageScorer(opts ...Option) *HeuristicImageScorer {
	return &HeuristicImageScorer{opts: newOptions(opts)}
}

// Name identifies the scorer in logs and metrics.
func (s *HeuristicImageScorer) Name() string {
	return "heuristic-image"
}

// Score decodes the payload and returns ErrDecodeFailure when it is not an image.
func (s *HeuristicImageScorer) Score(_ context.Context, payload string) (models.Verdict, error) {
	decoded, err := DecodeImage(payload)
	if err != nil {
		return models.Verdict{}, err
	}

	aiProbability := uniform(s.opts.random, imageScoreMin, imageScoreMax)

	finding := "Appears authentic"
	if aiProbability > models.AIThreshold {
		finding = "Manipulation detected"
	}
	explanation := fmt.Sprintf("Image analysis complete. %s. %s", finding, Explain(aiProbability))

	metadata := map[string]interface{}{
		"width":          decoded.Width,
		"height":         decoded.Height,
		"format":         decoded.Format,
		"mime_type":      decoded.MimeType,
		"size_bytes":     decoded.Size,
		"faces_detected": 0,
	}

	return newVerdict(aiProbability, explanation, metadata, models.AnalysisImage, s.opts.clock()), nil
}

// DecodeImage strips an optional data URI prefix, decodes base64 and reads the image header.
func DecodeImage(payload string) (DecodedImage, error) {
	data := strings.TrimSpace(payload)
	if data == "" {
		return DecodedImage{}, fmt.Errorf("%w: empty payload", ErrDecodeFailure)
	}

	if strings.HasPrefix(data, "data:image") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 {
			return DecodedImage{}, fmt.Errorf("%w: malformed data uri", ErrDecodeFailure)
		}
		data = data[comma+1:]
	}

	data = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, data)

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return DecodedImage{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return DecodedImage{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	return DecodedImage{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   format,
		MimeType: mimetype.Detect(raw).String(),
		Size:     len(raw),
	}, nil
}

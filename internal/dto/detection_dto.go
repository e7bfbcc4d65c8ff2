package dto

// DetectTextRequest is the body accepted by POST /api/detect-text.
// Text is a pointer so a missing key can be told apart from an empty string.
type DetectTextRequest struct {
	Text *string `json:"text"`
}

// DetectImageRequest is the body accepted by POST /api/detect-image.
type DetectImageRequest struct {
	Image *string `json:"image"`
}

package models

import "github.com/deepgram/studio/internal/domain/provider"

// GenerationRequest is built fresh for every submission and never retained
type GenerationRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	// Image is an optional base64 data URL
	Image string `json:"image,omitempty" validate:"omitempty,datauri"`
}

// GenerationResult replaces the previous result on each submission
type GenerationResult struct {
	Text     string          `json:"text,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Usage    *provider.Usage `json:"usage,omitempty"`
}

package image

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deepgram/studio/internal/domain/image/models"
	"github.com/deepgram/studio/internal/domain/provider"
	"github.com/deepgram/studio/internal/metrics"
	"github.com/deepgram/studio/pkg/dataurl"
	"github.com/deepgram/studio/pkg/inflight"
	"github.com/rs/zerolog/log"
)

var (
	// ErrEmptyPrompt is returned before any provider request is made
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrInvalidImage wraps a malformed input data URL
	ErrInvalidImage = errors.New("image must be a base64 data URL")
	// ErrGenerationInFlight is returned when the caller already has a request running
	ErrGenerationInFlight = errors.New("a generation is already in progress for this session")
)

type Service struct {
	provider provider.Provider
	inflight *inflight.Set
}

func NewService(p provider.Provider) (*Service, error) {
	if p == nil {
		return nil, fmt.Errorf("a model provider is required")
	}

	return &Service{
		provider: p,
		inflight: inflight.NewSet(),
	}, nil
}

// Generate sends the prompt, and the image when present, to the provider in a
// single request. sessionID scopes the one-at-a-time guard; an empty id
// disables it.
func (s *Service) Generate(ctx context.Context, sessionID string, req models.GenerationRequest) (*models.GenerationResult, error) {
	providerName := s.provider.Name()

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		metrics.GenerationRequests.WithLabelValues(providerName, metrics.OutcomeRejected).Inc()
		return nil, ErrEmptyPrompt
	}

	genReq := provider.GenerateRequest{Prompt: prompt}
	if req.Image != "" {
		image, err := dataurl.Decode(req.Image)
		if err != nil {
			metrics.GenerationRequests.WithLabelValues(providerName, metrics.OutcomeRejected).Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		genReq.Image = &provider.Attachment{MediaType: image.MediaType, Data: image.Data}
	}

	if sessionID != "" {
		release, ok := s.inflight.Acquire(sessionID)
		if !ok {
			metrics.GenerationRequests.WithLabelValues(providerName, metrics.OutcomeRejected).Inc()
			return nil, ErrGenerationInFlight
		}
		defer release()
	}

	log.Debug().
		Str("provider", providerName).
		Bool("has_image", genReq.Image != nil).
		Int("prompt_length", len(prompt)).
		Msg("Requesting image generation")

	start := time.Now()
	resp, err := s.provider.Generate(ctx, genReq)
	metrics.GenerationDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequests.WithLabelValues(providerName, metrics.OutcomeError).Inc()
		return nil, err
	}

	metrics.GenerationRequests.WithLabelValues(providerName, metrics.OutcomeSuccess).Inc()
	return toResult(resp), nil
}

// Busy reports whether sessionID has a generation in progress
func (s *Service) Busy(sessionID string) bool {
	return s.inflight.Held(sessionID)
}

// toResult keeps the narrative text and the first image attachment
func toResult(resp *provider.GenerateResponse) *models.GenerationResult {
	result := &models.GenerationResult{}
	if resp == nil {
		return result
	}

	result.Text = resp.Text
	result.Usage = resp.Usage
	for _, attachment := range resp.Attachments {
		if strings.HasPrefix(attachment.MediaType, "image/") {
			result.ImageURL = dataurl.Encode(attachment.MediaType, attachment.Data)
			break
		}
	}

	return result
}

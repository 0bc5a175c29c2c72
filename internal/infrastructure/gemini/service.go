package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/deepgram/studio/internal/config"
	"github.com/deepgram/studio/internal/domain/provider"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	ChatModel  string
	ImageModel string
	HTTPClient *http.Client
}

// Service wraps the genai client for the Gemini API backend
type Service struct {
	client     *genai.Client
	initErr    error
	chatModel  string
	imageModel string
}

func NewService() *Service {
	log.Info().Msg("Initialising Gemini service")

	return NewServiceWithConfig(Config{
		APIKey:     config.GetGeminiAPIKey(),
		BaseURL:    config.GetGeminiBaseURL(),
		APIVersion: config.GetGeminiAPIVersion(),
		ChatModel:  config.GetGeminiChatModel(),
		ImageModel: config.GetGeminiImageModel(),
	})
}

// NewServiceWithConfig builds the service; without an API key the client is
// left nil and every call fails at the provider boundary.
func NewServiceWithConfig(cfg Config) *Service {
	s := &Service{
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
	}

	if cfg.APIKey == "" {
		log.Warn().Msg("Gemini service not configured - GOOGLE_GENERATIVE_AI_API_KEY missing")
		return s
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Gemini client")
		s.initErr = fmt.Errorf("failed to create gemini client: %w", err)
		return s
	}
	s.client = client

	return s
}

func (s *Service) Name() string {
	return config.ProviderGemini
}

func (s *Service) models() (*genai.Models, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	if s.client == nil {
		return nil, provider.ErrMissingAPIKey
	}
	return s.client.Models, nil
}

// Generate sends one generateContent call to the image model. An input image
// and the prompt share a single user turn.
func (s *Service) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResponse, error) {
	models, err := s.models()
	if err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, 2)
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MediaType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	resp, err := models.GenerateContent(ctx, s.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
		})
	if err != nil {
		return nil, wrapError(err)
	}

	if err := blocked(resp); err != nil {
		return nil, err
	}

	result := &provider.GenerateResponse{}
	var text strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Thought {
				continue
			}
			text.WriteString(p.Text)
			if p.InlineData != nil {
				result.Attachments = append(result.Attachments, provider.Attachment{
					MediaType: p.InlineData.MIMEType,
					Data:      p.InlineData.Data,
				})
			}
		}
	}
	result.Text = text.String()

	if result.Text == "" && len(result.Attachments) == 0 {
		if err := unfinished(resp); err != nil {
			return nil, err
		}
	}

	if u := resp.UsageMetadata; u != nil {
		result.Usage = &provider.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}

	log.Debug().
		Str("model", s.imageModel).
		Int("attachments", len(result.Attachments)).
		Int("text_length", len(result.Text)).
		Msg("Gemini generation completed")

	return result, nil
}

// StreamChat opens a streamGenerateContent call. The first response is read
// before returning so that request failures surface as the returned error.
func (s *Service) StreamChat(ctx context.Context, messages []provider.Message) (<-chan provider.Chunk, error) {
	models, err := s.models()
	if err != nil {
		return nil, err
	}

	var (
		contents []*genai.Content
		system   []string
	)
	for _, msg := range messages {
		switch msg.Role {
		case provider.RoleSystem:
			system = append(system, msg.Text)
		case provider.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no conversation messages to send")
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	next, stop := iter.Pull2(models.GenerateContentStream(ctx, s.chatModel, contents, cfg))

	first, err, ok := next()
	if ok && err != nil {
		stop()
		return nil, wrapError(err)
	}

	chunks := make(chan provider.Chunk)

	go func() {
		defer close(chunks)
		defer stop()

		send := func(chunk provider.Chunk) bool {
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var (
			received bool
			last     *genai.GenerateContentResponse
		)
		for resp := first; ok; resp, err, ok = next() {
			if err != nil {
				if ctx.Err() == nil {
					send(provider.Chunk{Err: fmt.Errorf("gemini stream interrupted: %w", wrapError(err))})
				}
				return
			}
			if resp == nil {
				continue
			}
			if err := blocked(resp); err != nil {
				send(provider.Chunk{Err: err})
				return
			}

			last = resp
			for _, c := range resp.Candidates {
				if c.Content == nil {
					continue
				}
				for _, p := range c.Content.Parts {
					if p.Text == "" || p.Thought {
						continue
					}
					received = true
					if !send(provider.Chunk{Text: p.Text}) {
						return
					}
				}
			}
		}

		if !received && last != nil {
			if err := unfinished(last); err != nil {
				send(provider.Chunk{Err: err})
			}
		}
	}()

	return chunks, nil
}

func blocked(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
	}
	return nil
}

// unfinished reports a candidate that stopped for any reason other than a
// natural stop
func unfinished(resp *genai.GenerateContentResponse) error {
	for _, c := range resp.Candidates {
		switch c.FinishReason {
		case "", genai.FinishReasonStop, genai.FinishReasonUnspecified:
			continue
		}
		if c.FinishMessage != "" {
			return fmt.Errorf("gemini stopped without a reply: %s (%s)", c.FinishReason, c.FinishMessage)
		}
		return fmt.Errorf("gemini stopped without a reply: %s", c.FinishReason)
	}
	return nil
}

// wrapError puts the API message on the first line, where callers look for it
func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("%s (status %d %s)", apiErr.Message, apiErr.Code, apiErr.Status)
	}
	return err
}

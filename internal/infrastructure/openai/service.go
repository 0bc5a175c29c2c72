package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/deepgram/studio/internal/config"
	"github.com/deepgram/studio/internal/domain/provider"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Images come back as b64_json, which the API always encodes as PNG
const imageMediaType = "image/png"

// The edits endpoint infers the upload type from the file name
var editExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
}

type Service struct {
	mu         sync.RWMutex
	client     *openai.Client
	chatModel  string
	imageModel string
}

func NewService() *Service {
	log.Info().Msg("Initialising OpenAI service")

	return NewServiceWithConfig(Config{
		APIKey:     config.GetOpenAIKey(),
		BaseURL:    config.GetOpenAIBaseURL(),
		ChatModel:  config.GetOpenAIChatModel(),
		ImageModel: config.GetOpenAIImageModel(),
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
		log.Warn().Msg("OpenAI service not configured - OPENAI_KEY missing")
		return s
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	s.client = openai.NewClientWithConfig(clientConfig)

	return s
}

func (s *Service) Name() string {
	return config.ProviderOpenAI
}

func (s *Service) GetClient() *openai.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Service) StreamChat(ctx context.Context, messages []provider.Message) (<-chan provider.Chunk, error) {
	client := s.GetClient()
	if client == nil {
		return nil, provider.ErrMissingAPIKey
	}

	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Text,
		})
	}

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.chatModel,
		Messages: openaiMessages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat completion stream: %w", err)
	}

	chunks := make(chan provider.Chunk)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}

			var chunk provider.Chunk
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				chunk.Err = fmt.Errorf("chat completion stream interrupted: %w", err)
			} else {
				if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
					continue
				}
				chunk.Text = resp.Choices[0].Delta.Content
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}

			if chunk.Err != nil {
				return
			}
		}
	}()

	return chunks, nil
}

// Generate creates an image from the prompt, or edits the supplied image.
// Either way it is exactly one API call.
func (s *Service) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResponse, error) {
	client := s.GetClient()
	if client == nil {
		return nil, provider.ErrMissingAPIKey
	}

	var (
		resp openai.ImageResponse
		err  error
	)

	if req.Image != nil {
		resp, err = s.edit(ctx, client, req)
	} else {
		resp, err = client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         req.Prompt,
			Model:          s.imageModel,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
	}
	if err != nil {
		return nil, err
	}

	result := &provider.GenerateResponse{}
	var revised []string
	for _, item := range resp.Data {
		if item.RevisedPrompt != "" {
			revised = append(revised, item.RevisedPrompt)
		}
		if item.B64JSON == "" {
			log.Warn().Msg("OpenAI image returned without inline data, skipping")
			continue
		}

		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		result.Attachments = append(result.Attachments, provider.Attachment{
			MediaType: imageMediaType,
			Data:      data,
		})
	}
	result.Text = strings.Join(revised, "\n")

	return result, nil
}

// edit stages the input image in a temporary file for the multipart upload
func (s *Service) edit(ctx context.Context, client *openai.Client, req provider.GenerateRequest) (openai.ImageResponse, error) {
	ext, ok := editExtensions[strings.ToLower(req.Image.MediaType)]
	if !ok {
		return openai.ImageResponse{}, fmt.Errorf("unsupported image type for editing: %s", req.Image.MediaType)
	}

	file, err := os.CreateTemp("", "studio-edit-*"+ext)
	if err != nil {
		return openai.ImageResponse{}, fmt.Errorf("failed to stage image: %w", err)
	}
	defer func() {
		file.Close()
		os.Remove(file.Name())
	}()

	if _, err := file.Write(req.Image.Data); err != nil {
		return openai.ImageResponse{}, fmt.Errorf("failed to stage image: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return openai.ImageResponse{}, fmt.Errorf("failed to stage image: %w", err)
	}

	return client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          file,
		Prompt:         req.Prompt,
		Model:          s.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
}

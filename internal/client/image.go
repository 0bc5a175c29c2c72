package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/deepgram/studio/internal/domain/image/models"
	"github.com/deepgram/studio/pkg/dataurl"
)

var (
	// ErrEmptyPrompt means nothing was submitted
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrBusy means a submission is still loading
	ErrBusy = errors.New("a generation is already in progress")
	// ErrNotImage is returned by LoadImage for files that are not images
	ErrNotImage = errors.New("file is not an image")
)

// ImageGenerator holds the state of one image form: a loading flag and the
// latest result or error. Each submission replaces the previous outcome.
type ImageGenerator struct {
	client *Client

	mu      sync.RWMutex
	loading bool
	result  *models.GenerationResult
	errMsg  string
}

func NewImageGenerator(client *Client) *ImageGenerator {
	return &ImageGenerator{client: client}
}

// Generate posts prompt and the optional image data URL. A blank prompt is a
// no-op that leaves state untouched. Server failures are recorded in Error.
func (g *ImageGenerator) Generate(ctx context.Context, prompt, image string) (*models.GenerationResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	g.mu.Lock()
	if g.loading {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	g.loading = true
	g.result = nil
	g.errMsg = ""
	g.mu.Unlock()

	result, err := g.client.GenerateImage(ctx, models.GenerationRequest{Prompt: prompt, Image: image})

	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading = false
	if err != nil {
		g.errMsg = err.Error()
		return nil, err
	}
	g.result = result
	return result, nil
}

func (g *ImageGenerator) Loading() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loading
}

// Result returns the latest successful result, or nil
func (g *ImageGenerator) Result() *models.GenerationResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.result
}

// Error returns the message of the latest failure, or ""
func (g *ImageGenerator) Error() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.errMsg
}

// Reset clears the result and error
func (g *ImageGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.result = nil
	g.errMsg = ""
}

// GenerateImage performs one POST /api/image
func (c *Client) GenerateImage(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/image"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeServerError(resp)
	}

	var result models.GenerationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// EncodeImage turns raw image bytes into a data URL
func EncodeImage(data []byte) (string, error) {
	d := dataurl.FromBytes(data)
	if !strings.HasPrefix(d.MediaType, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, d.MediaType)
	}
	return d.String(), nil
}

// LoadImage reads an image file into a data URL
func LoadImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return EncodeImage(data)
}

// SaveImage writes the bytes of an image data URL to path
func SaveImage(path, imageURL string) error {
	d, err := dataurl.Decode(imageURL)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d.Data, 0o644)
}

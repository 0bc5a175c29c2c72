package services

import (
	"fmt"
	"sync"

	"github.com/deepgram/studio/internal/config"
	"github.com/deepgram/studio/internal/connections"
	"github.com/deepgram/studio/internal/domain/provider"
	"github.com/deepgram/studio/internal/infrastructure/gemini"
	"github.com/deepgram/studio/internal/infrastructure/openai"
	"github.com/deepgram/studio/internal/infrastructure/redis"
	"github.com/deepgram/studio/internal/services/chat"
	"github.com/deepgram/studio/internal/services/image"
	"github.com/deepgram/studio/internal/services/session"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	provider          provider.Provider
	chatService       *chat.Service
	imageService      *image.Service
	redisService      *redis.Service
	sessionService    *session.Service
	connectionManager *connections.Manager
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()
	log.Info().Msg("Initializing Redis service")

	// Initialize session service with optional Redis
	sessionService := session.NewService(redisService)
	log.Info().Msg("Initializing session service")

	modelProvider := NewProvider(config.GetProvider())
	log.Info().Str("provider", modelProvider.Name()).Msg("Initializing model provider")

	return NewServices(modelProvider, sessionService, redisService)
}

// NewProvider builds the backend named by PROVIDER
func NewProvider(name string) provider.Provider {
	switch name {
	case config.ProviderOpenAI:
		return openai.NewService()
	default:
		return gemini.NewService()
	}
}

// NewServices assembles the services around an already constructed provider.
// redisService may be nil.
func NewServices(modelProvider provider.Provider, sessionService *session.Service, redisService *redis.Service) (*Services, error) {
	chatService, err := chat.NewService(modelProvider, config.GetSystemPrompt())
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize chat service - required for message processing")
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}
	log.Info().Msg("Initializing chat service")

	imageService, err := image.NewService(modelProvider)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize image service")
		return nil, fmt.Errorf("failed to initialize image service: %w", err)
	}
	log.Info().Msg("Initializing image service")

	log.Info().Msg("All services initialized successfully")

	return &Services{
		provider:          modelProvider,
		chatService:       chatService,
		imageService:      imageService,
		redisService:      redisService,
		sessionService:    sessionService,
		connectionManager: connections.NewManager(connections.DefaultTimeouts),
	}, nil
}

// GetChatService returns the chat service
func (s *Services) GetChatService() *chat.Service {
	return s.chatService
}

// GetImageService returns the image service
func (s *Services) GetImageService() *image.Service {
	return s.imageService
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetConnectionManager returns the WebSocket connection manager
func (s *Services) GetConnectionManager() *connections.Manager {
	return s.connectionManager
}

// GetProvider returns the model provider backing chat and image generation
func (s *Services) GetProvider() provider.Provider {
	return s.provider
}

// Shutdown closes open connections and the Redis client
func (s *Services) Shutdown() {
	s.connectionManager.CloseAll()

	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}
}

package config

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

const defaultSystemPrompt = `You are a helpful assistant.
Keep answers concise and format them with markdown when it helps readability.`

// GetProvider returns the configured model provider, falling back to Gemini
func GetProvider() string {
	value := strings.ToLower(GetEnvOrDefault("PROVIDER", ProviderGemini))
	switch value {
	case ProviderGemini, ProviderOpenAI:
		return value
	}

	log.Warn().Str("provider", value).Msg("Unknown PROVIDER, falling back to gemini")
	return ProviderGemini
}

// GetGeminiAPIKey returns the Google Generative AI key
func GetGeminiAPIKey() string {
	value := GetEnvOrDefault("GOOGLE_GENERATIVE_AI_API_KEY", "")
	if value == "" {
		log.Warn().Msg("GOOGLE_GENERATIVE_AI_API_KEY environment variable not set")
	}
	return value
}

func GetGeminiBaseURL() string {
	return GetEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/")
}

func GetGeminiAPIVersion() string {
	return GetEnvOrDefault("GEMINI_API_VERSION", "v1beta")
}

func GetGeminiChatModel() string {
	return GetEnvOrDefault("GEMINI_CHAT_MODEL", "gemini-2.5-flash")
}

func GetGeminiImageModel() string {
	return GetEnvOrDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview")
}

// GetOpenAIKey returns the current OpenAI key
func GetOpenAIKey() string {
	value := GetEnvOrDefault("OPENAI_KEY", "")
	if value == "" {
		log.Warn().Msg("OPENAI_KEY environment variable not set")
	}
	return value
}

// GetOpenAIBaseURL returns an override for the OpenAI API base URL, empty for the SDK default
func GetOpenAIBaseURL() string {
	return GetEnvOrDefault("OPENAI_BASE_URL", "")
}

func GetOpenAIChatModel() string {
	return GetEnvOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini")
}

func GetOpenAIImageModel() string {
	return GetEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-2")
}

// GetSystemPrompt returns the instructions prepended to every conversation
func GetSystemPrompt() string {
	return GetEnvOrDefault("SYSTEM_PROMPT", defaultSystemPrompt)
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/deepgram/studio/internal/api/middleware"
	"github.com/deepgram/studio/internal/domain/image/models"
	"github.com/deepgram/studio/internal/services/image"
	"github.com/deepgram/studio/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// HandleImageGeneration generates or edits an image from {prompt, image?}.
// Provider failures are logged in full and answered with the first line of
// the error message.
func HandleImageGeneration(imageService *image.Service, w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		log.Warn().Msg("Client sent empty prompt")
		httpext.JsonError(w, "Prompt is required", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		log.Warn().Err(err).Msg("Request validation failed")
		httpext.JsonError(w, fmt.Sprintf("Invalid request: %s", httpext.Summarize(err)), http.StatusBadRequest)
		return
	}

	sessionID := middleware.SessionID(r.Context())

	log.Info().
		Str("session_id", sessionID).
		Bool("has_image", req.Image != "").
		Str("client_ip", r.RemoteAddr).
		Msg("Received image generation request")

	result, err := imageService.Generate(r.Context(), sessionID, req)
	if err != nil {
		switch {
		case errors.Is(err, image.ErrEmptyPrompt), errors.Is(err, image.ErrInvalidImage):
			log.Warn().Err(err).Msg("Rejected image generation request")
			httpext.JsonError(w, httpext.Summarize(err), http.StatusBadRequest)
		case errors.Is(err, image.ErrGenerationInFlight):
			log.Warn().Str("session_id", sessionID).Msg("Image generation already in progress")
			httpext.JsonError(w, httpext.Summarize(err), http.StatusConflict)
		default:
			log.Error().
				Err(err).
				Str("session_id", sessionID).
				Msg("Image generation error")
			httpext.JsonError(w, httpext.Summarize(err), http.StatusInternalServerError)
		}
		return
	}

	log.Info().
		Str("session_id", sessionID).
		Bool("has_image", result.ImageURL != "").
		Int("text_length", len(result.Text)).
		Msg("Image generation request processed successfully")

	httpext.JsonResponse(w, result, http.StatusOK)
}

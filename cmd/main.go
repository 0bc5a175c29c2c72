package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deepgram/studio/internal/api/handlers"
	"github.com/deepgram/studio/internal/config"
	"github.com/deepgram/studio/internal/services"
	"github.com/deepgram/studio/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	logger.Init(config.GetLogLevel(), config.GetLogPretty())
	if envErr == nil {
		log.Info().Msg("Loaded environment from .env")
	}

	svc, err := services.InitializeServices()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	server := &http.Server{
		Addr:              ":" + config.GetPort(),
		Handler:           setupRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), config.GetRequestTimeout())
	defer cancel()

	// hijacked WebSocket connections are not tracked by Shutdown
	svc.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown did not complete cleanly")
	}
}

func setupRouter(svc *services.Services) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterRoutes(r, svc)
	return r
}

package handlers

import (
	"net/http"

	"github.com/deepgram/studio/internal/api/middleware"
	"github.com/deepgram/studio/internal/config"
	"github.com/deepgram/studio/internal/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(router *mux.Router, services *services.Services) {
	router.Use(middleware.Logging)

	// Operational routes (no session)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		HandleHealth(services.GetProvider().Name(), w, r)
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	sessionMiddleware := middleware.Session(services.GetSessionService())
	timeout := middleware.Timeout(config.GetRequestTimeout())

	// API routes, bounded by the request ceiling
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(sessionMiddleware)

	apiRouter.HandleFunc("/session", HandleGetSession).Methods("GET")
	apiRouter.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		HandleDeleteSession(services.GetSessionService(), w, r)
	}).Methods("DELETE")

	apiRouter.Handle("/image", timeout(middleware.RateLimit("image_generation")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleImageGeneration(services.GetImageService(), w, r)
	})))).Methods("POST")

	apiRouter.Handle("/chat", timeout(middleware.RateLimit("chat_completion")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleChatStream(services.GetChatService(), w, r)
	})))).Methods("POST")

	// WebSocket routes live as long as the connection
	wsRouter := router.PathPrefix("/ws").Subrouter()
	wsRouter.Use(sessionMiddleware)
	wsRouter.Handle("/chat", middleware.RateLimit("global")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleChatWebSocket(services.GetChatService(), services.GetConnectionManager(), w, r)
	}))).Methods("GET")
}

package handlers

import (
	"net/http"

	"github.com/deepgram/studio/internal/api/middleware"
	"github.com/deepgram/studio/internal/services/session"
	"github.com/deepgram/studio/pkg/httpext"
)

type sessionResponse struct {
	ID string `json:"id"`
}

// HandleGetSession returns the id of the session established by the session middleware
func HandleGetSession(w http.ResponseWriter, r *http.Request) {
	httpext.JsonResponse(w, sessionResponse{ID: middleware.SessionID(r.Context())}, http.StatusOK)
}

// HandleDeleteSession forgets the session and expires its cookie
func HandleDeleteSession(sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	sessionService.ClearSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

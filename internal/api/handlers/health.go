package handlers

import (
	"net/http"

	"github.com/deepgram/studio/pkg/httpext"
)

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

func HandleHealth(providerName string, w http.ResponseWriter, r *http.Request) {
	httpext.JsonResponse(w, healthResponse{Status: "ok", Provider: providerName}, http.StatusOK)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/streambox/internal/models"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// orEmpty keeps list responses encoded as [] rather than null
func orEmpty(items []*models.Content) []*models.Content {
	if items == nil {
		return []*models.Content{}
	}
	return items
}

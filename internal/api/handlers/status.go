package handlers

import (
	"context"
	"net/http"

	"github.com/amaumene/streambox/internal/models"
	"github.com/sirupsen/logrus"
)

// StatusSource is what the status endpoint reads
type StatusSource interface {
	GetAllContent(ctx context.Context) ([]*models.Content, error)
	ResolveDemoUser(ctx context.Context) (*models.User, error)
	GetUserList(ctx context.Context, userID string) ([]string, error)
}

// StatusHandler handles status requests
type StatusHandler struct {
	source StatusSource
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(source StatusSource, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		source: source,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalContent            int            `json:"total_content"`
	Movies                  int            `json:"movies"`
	Series                  int            `json:"series"`
	Featured                int            `json:"featured"`
	Favorites               int            `json:"favorites"`
	ContentByGenre          map[string]int `json:"content_by_genre"`
	ContentByClassification map[string]int `json:"content_by_classification"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.source.GetAllContent(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get content")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := StatusResponse{
		TotalContent:            len(items),
		ContentByGenre:          make(map[string]int),
		ContentByClassification: make(map[string]int),
	}

	for _, item := range items {
		// Count by type
		switch item.Type() {
		case models.ContentTypeMovie:
			response.Movies++
		case models.ContentTypeSeries:
			response.Series++
		}

		if item.Featured {
			response.Featured++
		}

		response.ContentByGenre[item.Genre]++
		response.ContentByClassification[string(item.Classification)]++
	}

	user, err := h.source.ResolveDemoUser(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve demo user")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	favorites, err := h.source.GetUserList(ctx, user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get user list")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	response.Favorites = len(favorites)

	writeJSON(w, http.StatusOK, response)
}

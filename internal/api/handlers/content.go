package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/amaumene/streambox/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// CatalogService is the read side of the catalog used by the content routes
type CatalogService interface {
	GetAllContent(ctx context.Context) ([]*models.Content, error)
	GetContentByID(ctx context.Context, id string) (*models.Content, error)
	GetContentByType(ctx context.Context, kind models.ContentType) ([]*models.Content, error)
	GetFeaturedContent(ctx context.Context) ([]*models.Content, error)
	SearchContent(ctx context.Context, query string) ([]*models.Content, error)
}

// ContentHandler serves the catalog routes
type ContentHandler struct {
	catalog CatalogService
	logger  *logrus.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(catalog CatalogService, logger *logrus.Logger) *ContentHandler {
	return &ContentHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListFilter is the parsed query string of GET /api/content
type ListFilter struct {
	Search   string
	Type     models.ContentType
	Featured bool
}

// ParseListFilter reads search, type and featured. Unknown type values and
// anything other than featured=true are ignored.
func ParseListFilter(r *http.Request) ListFilter {
	q := r.URL.Query()

	filter := ListFilter{
		Search:   q.Get("search"),
		Featured: q.Get("featured") == "true",
	}
	if kind, ok := models.ParseContentType(q.Get("type")); ok {
		filter.Type = kind
	}
	return filter
}

// Apply runs the filter with search taking precedence over type, and type
// over featured.
func (f ListFilter) Apply(ctx context.Context, catalog CatalogService) ([]*models.Content, error) {
	switch {
	case f.Search != "":
		return catalog.SearchContent(ctx, f.Search)
	case f.Type != "":
		return catalog.GetContentByType(ctx, f.Type)
	case f.Featured:
		return catalog.GetFeaturedContent(ctx)
	default:
		return catalog.GetAllContent(ctx)
	}
}

// List handles GET /api/content
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ParseListFilter(r)

	items, err := filter.Apply(r.Context(), h.catalog)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"search":   filter.Search,
			"type":     filter.Type,
			"featured": filter.Featured,
		}).Error("Failed to fetch content")
		writeError(w, http.StatusInternalServerError, "Failed to fetch content")
		return
	}

	writeJSON(w, http.StatusOK, orEmpty(items))
}

// Get handles GET /api/content/{id}
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, http.StatusBadRequest, "Invalid content ID")
		return
	}

	item, err := h.catalog.GetContentByID(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, item)
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Content not found")
	case errors.Is(err, models.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid content ID")
	default:
		h.logger.WithError(err).WithField("content_id", id).Error("Failed to fetch content")
		writeError(w, http.StatusInternalServerError, "Failed to fetch content")
	}
}

// MissingID answers requests whose id path segment is empty
func (h *ContentHandler) MissingID(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusBadRequest, "Invalid content ID")
}

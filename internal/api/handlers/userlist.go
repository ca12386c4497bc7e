package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amaumene/streambox/internal/api/middleware"
	"github.com/amaumene/streambox/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// UserListService is the favorites side used by the user list routes
type UserListService interface {
	ResolveUserList(ctx context.Context, userID string) ([]*models.Content, error)
	AddFavorite(ctx context.Context, userID, contentID string) (*models.UserListEntry, error)
	RemoveFromUserList(ctx context.Context, userID, contentID string) (bool, error)
}

// UserListHandler serves the favorites routes for the request's user
type UserListHandler struct {
	lists  UserListService
	logger *logrus.Logger
}

// NewUserListHandler creates a new user list handler
func NewUserListHandler(lists UserListService, logger *logrus.Logger) *UserListHandler {
	return &UserListHandler{
		lists:  lists,
		logger: logger,
	}
}

// AddRequest is the body of POST /api/user-list
type AddRequest struct {
	ContentID string `json:"contentId"`
}

// DeleteResponse is the body of a successful DELETE /api/user-list/{contentId}
type DeleteResponse struct {
	Success bool `json:"success"`
}

func (h *UserListHandler) user(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.logger.Error("User list route reached without a resolved user")
		writeError(w, http.StatusInternalServerError, "Failed to resolve user")
	}
	return user, ok
}

// List handles GET /api/user-list
func (h *UserListHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	items, err := h.lists.ResolveUserList(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to fetch user list")
		writeError(w, http.StatusInternalServerError, "Failed to fetch user list")
		return
	}

	writeJSON(w, http.StatusOK, orEmpty(items))
}

// Add handles POST /api/user-list
func (h *UserListHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Debug("Failed to decode user list request")
		writeError(w, http.StatusBadRequest, "Content ID is required")
		return
	}
	if req.ContentID == "" {
		writeError(w, http.StatusBadRequest, "Content ID is required")
		return
	}

	entry, err := h.lists.AddFavorite(r.Context(), user.ID, req.ContentID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case errors.Is(err, models.ErrAlreadyInList):
		writeError(w, http.StatusBadRequest, "Content already in list")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Content not found")
	case errors.Is(err, models.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Content ID is required")
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    user.ID,
			"content_id": req.ContentID,
		}).Error("Failed to add content to list")
		writeError(w, http.StatusInternalServerError, "Failed to add content to list")
	}
}

// Remove handles DELETE /api/user-list/{contentId}
func (h *UserListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	contentID := mux.Vars(r)["contentId"]
	if contentID == "" {
		writeError(w, http.StatusBadRequest, "Invalid content ID")
		return
	}

	removed, err := h.lists.RemoveFromUserList(r.Context(), user.ID, contentID)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    user.ID,
			"content_id": contentID,
		}).Error("Failed to remove content from list")
		writeError(w, http.StatusInternalServerError, "Failed to remove content from list")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Content not found in list")
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Success: true})
}

// MissingID answers DELETE requests without a content id
func (h *UserListHandler) MissingID(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusBadRequest, "Invalid content ID")
}

package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/amaumene/streambox/internal/telemetry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserListController manages per-user favorites
type UserListController struct {
	store   store.Store
	catalog *CatalogController
	inst    instrumentation
	metrics *telemetry.Metrics
	logger  *logrus.Logger
	now     func() time.Time
}

// NewUserListController creates a new user list controller
func NewUserListController(st store.Store, catalog *CatalogController, tracer trace.Tracer, metrics *telemetry.Metrics, logger *logrus.Logger) *UserListController {
	return &UserListController{
		store:   st,
		catalog: catalog,
		inst:    instrumentation{tracer: tracer, metrics: metrics},
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func pairAttrs(userID, contentID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("user.id", userID),
		attribute.String("content.id", contentID),
	}
}

// GetUserList returns the content ids a user has favorited, oldest first
func (c *UserListController) GetUserList(ctx context.Context, userID string) (ids []string, err error) {
	ctx, done := c.inst.start(ctx, "userlist.get", attribute.String("user.id", userID))
	defer done(&err)

	entries, err := c.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids = make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ContentID)
	}
	return ids, nil
}

// ResolveUserList returns the full content of a user's favorites, oldest
// first. Entries whose content no longer exists are skipped.
func (c *UserListController) ResolveUserList(ctx context.Context, userID string) (items []*models.Content, err error) {
	ctx, done := c.inst.start(ctx, "userlist.resolve", attribute.String("user.id", userID))
	defer done(&err)

	ids, err := c.GetUserList(ctx, userID)
	if err != nil {
		return nil, err
	}

	items = make([]*models.Content, 0, len(ids))
	for _, id := range ids {
		item, err := c.catalog.GetContentByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			c.logger.WithFields(logrus.Fields{
				"user_id":    userID,
				"content_id": id,
			}).Debug("Skipping favorite with missing content")
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// AddToUserList appends an entry without any validation. Calling it twice
// for the same pair stores two entries; AddFavorite is the guarded form.
func (c *UserListController) AddToUserList(ctx context.Context, userID, contentID string) (entry *models.UserListEntry, err error) {
	ctx, done := c.inst.start(ctx, "userlist.add", pairAttrs(userID, contentID)...)
	defer done(&err)

	entry = c.newEntry(userID, contentID)
	if err := c.store.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}
	c.metrics.FavoritesAdded.Inc()
	return entry, nil
}

// AddFavorite adds contentID to the user's list if the content exists and the
// pair is not already present. The duplicate check and insert are atomic.
func (c *UserListController) AddFavorite(ctx context.Context, userID, contentID string) (entry *models.UserListEntry, err error) {
	ctx, done := c.inst.start(ctx, "userlist.add_favorite", pairAttrs(userID, contentID)...)
	defer done(&err)

	if strings.TrimSpace(contentID) == "" {
		return nil, fmt.Errorf("%w: content id is required", models.ErrInvalidInput)
	}

	if _, err := c.catalog.GetContentByID(ctx, contentID); err != nil {
		return nil, err
	}

	entry = c.newEntry(userID, contentID)
	if err := c.store.InsertEntryIfAbsent(ctx, entry); err != nil {
		return nil, err
	}

	c.metrics.FavoritesAdded.Inc()
	c.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"content_id": contentID,
	}).Info("Content added to list")
	return entry, nil
}

// RemoveFromUserList removes the pair and reports whether anything was removed
func (c *UserListController) RemoveFromUserList(ctx context.Context, userID, contentID string) (removed bool, err error) {
	ctx, done := c.inst.start(ctx, "userlist.remove", pairAttrs(userID, contentID)...)
	defer done(&err)

	n, err := c.store.DeleteEntries(ctx, userID, contentID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		c.metrics.FavoritesRemoved.Add(float64(n))
	}
	return n > 0, nil
}

// IsInUserList reports whether the user has favorited contentID
func (c *UserListController) IsInUserList(ctx context.Context, userID, contentID string) (found bool, err error) {
	ctx, done := c.inst.start(ctx, "userlist.contains", pairAttrs(userID, contentID)...)
	defer done(&err)

	entries, err := c.store.ListEntries(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.ContentID == contentID {
			return true, nil
		}
	}
	return false, nil
}

func (c *UserListController) newEntry(userID, contentID string) *models.UserListEntry {
	return &models.UserListEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		ContentID: contentID,
		AddedAt:   c.now().UTC(),
	}
}

package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/amaumene/streambox/internal/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// CleanupController removes favorites that point at content no longer in the catalog
type CleanupController struct {
	store   store.Store
	inst    instrumentation
	metrics *telemetry.Metrics
	logger  *logrus.Logger
}

// NewCleanupController creates a new cleanup controller
func NewCleanupController(st store.Store, tracer trace.Tracer, metrics *telemetry.Metrics, logger *logrus.Logger) *CleanupController {
	return &CleanupController{
		store:   st,
		inst:    instrumentation{tracer: tracer, metrics: metrics},
		metrics: metrics,
		logger:  logger,
	}
}

// PruneDangling deletes every favorite entry whose content id is unknown and
// returns how many were deleted. Reads of user lists already skip such
// entries; this keeps persistent stores from accumulating them.
func (c *CleanupController) PruneDangling(ctx context.Context) (pruned int, err error) {
	ctx, done := c.inst.start(ctx, "cleanup.prune_dangling")
	defer done(&err)

	c.logger.Info("Starting cleanup of dangling favorites")

	entries, err := c.store.ListAllEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list favorites: %w", err)
	}

	exists := make(map[string]bool)
	for _, entry := range entries {
		known, checked := exists[entry.ContentID]
		if !checked {
			_, err := c.store.GetContent(ctx, entry.ContentID)
			switch {
			case err == nil:
				known = true
			case errors.Is(err, models.ErrNotFound):
				known = false
			default:
				return pruned, fmt.Errorf("failed to check content %s: %w", entry.ContentID, err)
			}
			exists[entry.ContentID] = known
		}
		if known {
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"entry_id":   entry.ID,
			"user_id":    entry.UserID,
			"content_id": entry.ContentID,
		}).Info("Removing dangling favorite")

		if err := c.store.DeleteEntry(ctx, entry.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
			c.logger.WithError(err).WithField("entry_id", entry.ID).Error("Failed to delete favorite")
			continue
		}
		pruned++
	}

	c.metrics.FavoritesPruned.Add(float64(pruned))
	c.logger.WithField("pruned", pruned).Info("Cleanup of dangling favorites completed")
	return pruned, nil
}

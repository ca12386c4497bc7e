package controllers

import (
	"context"
	"fmt"
	"strings"

	"github.com/amaumene/streambox/internal/cache"
	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/amaumene/streambox/internal/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
)

const (
	cacheKeyAll      = "content:all"
	cacheKeyFeatured = "content:featured"
	cacheKeyType     = "content:type:"
	cacheKeyID       = "content:id:"
)

// CatalogController answers read queries over the content collection
type CatalogController struct {
	store   store.Store
	cache   cache.Cache
	inst    instrumentation
	metrics *telemetry.Metrics
	logger  *logrus.Logger
}

// NewCatalogController creates a new catalog controller
func NewCatalogController(st store.Store, c cache.Cache, tracer trace.Tracer, metrics *telemetry.Metrics, logger *logrus.Logger) *CatalogController {
	return &CatalogController{
		store:   st,
		cache:   c,
		inst:    instrumentation{tracer: tracer, metrics: metrics},
		metrics: metrics,
		logger:  logger,
	}
}

// Seed stores every item and drops cached query results
func (c *CatalogController) Seed(ctx context.Context, items []*models.Content) (err error) {
	ctx, done := c.inst.start(ctx, "catalog.seed", attribute.Int("items", len(items)))
	defer done(&err)

	for _, item := range items {
		if err := c.store.PutContent(ctx, item); err != nil {
			return fmt.Errorf("failed to store content %s: %w", item.ID, err)
		}
	}

	if err := c.cache.Flush(ctx); err != nil {
		c.logger.WithError(err).Warn("Failed to flush query cache after seeding")
	}

	c.logger.WithField("count", len(items)).Info("Catalog seeded")
	return nil
}

// GetAllContent returns the whole catalog in insertion order
func (c *CatalogController) GetAllContent(ctx context.Context) (items []*models.Content, err error) {
	ctx, done := c.inst.start(ctx, "catalog.get_all")
	defer done(&err)

	return c.findCached(ctx, cacheKeyAll, store.ContentQuery{})
}

// GetContentByID returns a single item, or models.ErrNotFound
func (c *CatalogController) GetContentByID(ctx context.Context, id string) (item *models.Content, err error) {
	ctx, done := c.inst.start(ctx, "catalog.get_by_id", attribute.String("content.id", id))
	defer done(&err)

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: content id is required", models.ErrInvalidInput)
	}

	return cached(ctx, c, cacheKeyID+id, func(ctx context.Context) (*models.Content, error) {
		return c.store.GetContent(ctx, id)
	})
}

// GetContentByType returns every item of the given kind in insertion order
func (c *CatalogController) GetContentByType(ctx context.Context, kind models.ContentType) (items []*models.Content, err error) {
	ctx, done := c.inst.start(ctx, "catalog.get_by_type", attribute.String("content.type", string(kind)))
	defer done(&err)

	if _, ok := models.ParseContentType(string(kind)); !ok {
		return nil, fmt.Errorf("%w: unknown content type %q", models.ErrInvalidInput, kind)
	}

	return c.findCached(ctx, cacheKeyType+string(kind), store.ContentQuery{Type: kind})
}

// GetFeaturedContent returns every featured item in insertion order
func (c *CatalogController) GetFeaturedContent(ctx context.Context) (items []*models.Content, err error) {
	ctx, done := c.inst.start(ctx, "catalog.get_featured")
	defer done(&err)

	return c.findCached(ctx, cacheKeyFeatured, store.ContentQuery{FeaturedOnly: true})
}

// SearchContent returns items whose title, genre or any cast name contains
// query, ignoring case. The query is used as given: an empty query matches
// everything.
func (c *CatalogController) SearchContent(ctx context.Context, query string) (items []*models.Content, err error) {
	ctx, done := c.inst.start(ctx, "catalog.search", attribute.String("search.query", query))
	defer done(&err)

	all, err := c.findCached(ctx, cacheKeyAll, store.ContentQuery{})
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(query)

	result := make([]*models.Content, 0)
	for _, item := range all {
		if matchesSearch(item, needle, fold) {
			result = append(result, item)
		}
	}
	return result, nil
}

func matchesSearch(item *models.Content, needle string, fold cases.Caser) bool {
	if strings.Contains(fold.String(item.Title), needle) {
		return true
	}
	if strings.Contains(fold.String(item.Genre), needle) {
		return true
	}
	for _, member := range item.Cast {
		if strings.Contains(fold.String(member.Name), needle) {
			return true
		}
	}
	return false
}

// Warm loads the common listings into the cache
func (c *CatalogController) Warm(ctx context.Context) error {
	if _, err := c.GetAllContent(ctx); err != nil {
		return err
	}
	if _, err := c.GetFeaturedContent(ctx); err != nil {
		return err
	}
	for _, kind := range []models.ContentType{models.ContentTypeMovie, models.ContentTypeSeries} {
		if _, err := c.GetContentByType(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

func (c *CatalogController) findCached(ctx context.Context, key string, q store.ContentQuery) ([]*models.Content, error) {
	return cached(ctx, c, key, func(ctx context.Context) ([]*models.Content, error) {
		return c.store.FindContent(ctx, q)
	})
}

// cached serves key from the cache, loading and storing it on a miss.
// Cache failures are logged and never fail the query.
func cached[T any](ctx context.Context, c *CatalogController, key string, load func(context.Context) (T, error)) (T, error) {
	var value T
	hit, err := c.cache.Get(ctx, key, &value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed, falling back to store")
	}
	if hit {
		c.metrics.CacheHits.Inc()
		return value, nil
	}
	c.metrics.CacheMisses.Inc()

	value, err = load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := c.cache.Set(ctx, key, value); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
	return value, nil
}

package controllers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/streambox/internal/cache"
	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/amaumene/streambox/internal/store/memory"
	"github.com/amaumene/streambox/internal/store/storetest"
	"github.com/amaumene/streambox/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type fixture struct {
	store    store.Store
	metrics  *telemetry.Metrics
	service  *Service
	cleanup  *CleanupController
	recorder *tracetest.SpanRecorder
}

func newFixture(t *testing.T, st store.Store, c cache.Cache) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	metrics := telemetry.NewMetrics()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	var tracer trace.Tracer = provider.Tracer("test")

	catalog := NewCatalogController(st, c, tracer, metrics, logger)
	return &fixture{
		store:   st,
		metrics: metrics,
		service: &Service{
			CatalogController:  catalog,
			IdentityController: NewIdentityController(st, models.InsertUser{Username: "demo", Password: "demo"}, tracer, metrics, logger),
			UserListController: NewUserListController(st, catalog, tracer, metrics, logger),
		},
		cleanup:  NewCleanupController(st, tracer, metrics, logger),
		recorder: recorder,
	}
}

func seeded(t *testing.T, items ...*models.Content) *fixture {
	t.Helper()
	f := newFixture(t, memory.New(), cache.Noop{})
	require.NoError(t, f.service.Seed(context.Background(), items))
	return f
}

func contentIDs(items []*models.Content) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func witcherAndBreakingBad() []*models.Content {
	witcher := storetest.Series("s1", "The Witcher", false)
	witcher.Genre = "Fantasia"
	witcher.Cast = []models.Person{{Name: "Henry Cavill"}}

	bb := storetest.Series("s2", "Breaking Bad", false)
	bb.Genre = "Drama"
	bb.Cast = []models.Person{{Name: "Bryan Cranston"}}
	return []*models.Content{witcher, bb}
}

func TestSearchContent(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, witcherAndBreakingBad()...)

	got, err := f.service.SearchContent(ctx, "witc")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, contentIDs(got))

	got, err = f.service.SearchContent(ctx, "drama")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, contentIDs(got))

	got, err = f.service.SearchContent(ctx, "CRANSTON")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, contentIDs(got))

	got, err = f.service.SearchContent(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, contentIDs(got))

	got, err = f.service.SearchContent(ctx, "nothing matches this")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchFoldsUnicodeCase(t *testing.T) {
	item := storetest.Movie("m1", "Corra Que a Polícia Vem Aí!", false)
	item.Genre = "Animação"
	f := seeded(t, item)

	got, err := f.service.SearchContent(context.Background(), "ANIMAÇÃO")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, contentIDs(got))

	got, err = f.service.SearchContent(context.Background(), "polícia")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, contentIDs(got))
}

func TestTypeFilterPartitionsCatalog(t *testing.T) {
	ctx := context.Background()
	f := seeded(t,
		storetest.Movie("m1", "One", true),
		storetest.Series("s1", "Two", false),
		storetest.Movie("m2", "Three", false),
		storetest.Series("s2", "Four", true),
	)

	all, err := f.service.GetAllContent(ctx)
	require.NoError(t, err)
	movies, err := f.service.GetContentByType(ctx, models.ContentTypeMovie)
	require.NoError(t, err)
	series, err := f.service.GetContentByType(ctx, models.ContentTypeSeries)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m2"}, contentIDs(movies))
	assert.Equal(t, []string{"s1", "s2"}, contentIDs(series))

	inMovies := map[string]bool{}
	for _, id := range contentIDs(movies) {
		inMovies[id] = true
	}
	for _, item := range all {
		inSeries := false
		for _, s := range series {
			inSeries = inSeries || s.ID == item.ID
		}
		assert.True(t, inMovies[item.ID] != inSeries, "%s must be in exactly one partition", item.ID)
	}

	_, err = f.service.GetContentByType(ctx, "documentary")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFeaturedSubset(t *testing.T) {
	f := seeded(t,
		storetest.Movie("m1", "One", true),
		storetest.Series("s1", "Two", false),
		storetest.Series("s2", "Three", true),
	)

	featured, err := f.service.GetFeaturedContent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "s2"}, contentIDs(featured))
	for _, item := range featured {
		assert.True(t, item.Featured)
	}
}

func TestOrderIsStable(t *testing.T) {
	ctx := context.Background()
	f := seeded(t,
		storetest.Series("s9", "Z", false),
		storetest.Movie("m1", "A", false),
		storetest.Movie("m5", "M", false),
	)

	first, err := f.service.GetAllContent(ctx)
	require.NoError(t, err)
	second, err := f.service.GetAllContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s9", "m1", "m5"}, contentIDs(first))
	assert.Equal(t, contentIDs(first), contentIDs(second))
}

func TestGetContentByID(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, storetest.Movie("m1", "One", false))

	got, err := f.service.GetContentByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "One", got.Title)

	_, err = f.service.GetContentByID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.service.GetContentByID(ctx, "  ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestUserListRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, storetest.Movie("m1", "One", false), storetest.Series("s1", "Two", false))

	user, err := f.service.ResolveDemoUser(ctx)
	require.NoError(t, err)

	entry, err := f.service.AddToUserList(ctx, user.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, entry.UserID)
	assert.Equal(t, "s1", entry.ContentID)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.AddedAt.IsZero())

	in, err := f.service.IsInUserList(ctx, user.ID, "s1")
	require.NoError(t, err)
	assert.True(t, in)

	ids, err := f.service.GetUserList(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	removed, err := f.service.RemoveFromUserList(ctx, user.ID, "s1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.service.RemoveFromUserList(ctx, user.ID, "s1")
	require.NoError(t, err)
	assert.False(t, removed)

	in, err = f.service.IsInUserList(ctx, user.ID, "s1")
	require.NoError(t, err)
	assert.False(t, in)

	ids, err = f.service.GetUserList(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAddToUserListIsUnguarded(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, storetest.Movie("m1", "One", false))

	_, err := f.service.AddToUserList(ctx, "u1", "m1")
	require.NoError(t, err)
	_, err = f.service.AddToUserList(ctx, "u1", "m1")
	require.NoError(t, err)

	ids, err := f.service.GetUserList(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m1"}, ids)

	removed, err := f.service.RemoveFromUserList(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.True(t, removed)

	ids, err = f.service.GetUserList(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAddFavoriteGuards(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, storetest.Movie("m1", "One", false))

	_, err := f.service.AddFavorite(ctx, "u1", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.service.AddFavorite(ctx, "u1", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.service.AddFavorite(ctx, "u1", "m1")
	require.NoError(t, err)

	_, err = f.service.AddFavorite(ctx, "u1", "m1")
	assert.ErrorIs(t, err, models.ErrAlreadyInList)

	ids, err := f.service.GetUserList(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.FavoritesAdded))
}

func TestAddFavoriteConcurrent(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, storetest.Movie("m1", "One", false))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.AddFavorite(ctx, "u1", "m1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrAlreadyInList):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 15, conflicts)
}

func TestResolveUserListSkipsDangling(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, storetest.Movie("m1", "One", false), storetest.Series("s1", "Two", false))

	_, err := f.service.AddToUserList(ctx, "u1", "s1")
	require.NoError(t, err)
	_, err = f.service.AddToUserList(ctx, "u1", "gone")
	require.NoError(t, err)
	_, err = f.service.AddToUserList(ctx, "u1", "m1")
	require.NoError(t, err)

	items, err := f.service.ResolveUserList(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "m1"}, contentIDs(items))
	assert.Equal(t, "Two", items[0].Title)
}

func TestResolveDemoUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := seeded(t)

	var (
		wg  sync.WaitGroup
		ids sync.Map
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := f.service.ResolveDemoUser(ctx)
			if assert.NoError(t, err) {
				ids.Store(user.ID, true)
			}
		}()
	}
	wg.Wait()

	count := 0
	ids.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count)

	user, err := f.service.GetUserByUsername(ctx, "demo")
	require.NoError(t, err)
	byID, err := f.service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo", byID.Username)
}

func TestResolveDemoUserReusesExistingAccount(t *testing.T) {
	ctx := context.Background()
	f := seeded(t)

	existing, err := f.service.CreateUser(ctx, models.InsertUser{Username: "demo", Password: "demo"})
	require.NoError(t, err)

	user, err := f.service.ResolveDemoUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)

	_, err = f.service.CreateUser(ctx, models.InsertUser{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.service.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCatalogQueriesUseCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), cache.NewMemory(time.Minute))
	require.NoError(t, f.service.Seed(ctx, []*models.Content{storetest.Movie("m1", "One", true)}))

	_, err := f.service.GetFeaturedContent(ctx)
	require.NoError(t, err)
	_, err = f.service.GetFeaturedContent(ctx)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheHits))

	// Seeding drops cached listings
	require.NoError(t, f.service.Seed(ctx, []*models.Content{storetest.Movie("m2", "Two", true)}))
	featured, err := f.service.GetFeaturedContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, contentIDs(featured))
}

func TestWarmFillsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), cache.NewMemory(time.Minute))
	require.NoError(t, f.service.Seed(ctx, []*models.Content{storetest.Movie("m1", "One", true)}))

	require.NoError(t, f.service.Warm(ctx))
	misses := testutil.ToFloat64(f.metrics.CacheMisses)

	_, err := f.service.GetContentByType(ctx, models.ContentTypeSeries)
	require.NoError(t, err)
	assert.Equal(t, misses, testutil.ToFloat64(f.metrics.CacheMisses))
}

type failingStore struct {
	store.Store
}

func (failingStore) FindContent(context.Context, store.ContentQuery) ([]*models.Content, error) {
	return nil, models.ErrUnavailable
}

func TestStoreFailureIsRecorded(t *testing.T) {
	f := newFixture(t, failingStore{Store: memory.New()}, cache.Noop{})

	_, err := f.service.GetAllContent(context.Background())
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OperationErrors.WithLabelValues("catalog.get_all")))

	spans := f.recorder.Ended()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "catalog.get_all", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
}

func TestNotFoundIsNotAFault(t *testing.T) {
	f := seeded(t)

	_, err := f.service.GetContentByID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.OperationErrors.WithLabelValues("catalog.get_by_id")))
}

func TestPruneDangling(t *testing.T) {
	ctx := context.Background()
	f := seeded(t, storetest.Movie("m1", "One", false))

	_, err := f.service.AddToUserList(ctx, "u1", "m1")
	require.NoError(t, err)
	_, err = f.service.AddToUserList(ctx, "u1", "gone")
	require.NoError(t, err)
	_, err = f.service.AddToUserList(ctx, "u2", "gone")
	require.NoError(t, err)

	pruned, err := f.cleanup.PruneDangling(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	ids, err := f.service.GetUserList(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.FavoritesPruned))
}

func TestNoopTracerIsAccepted(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	catalog := NewCatalogController(memory.New(), cache.Noop{}, noop.NewTracerProvider().Tracer("x"), telemetry.NewMetrics(), logger)

	items, err := catalog.GetAllContent(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

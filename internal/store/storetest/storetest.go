// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Movie builds a minimal movie fixture
func Movie(id, title string, featured bool) *models.Content {
	return &models.Content{
		ID:             id,
		Title:          title,
		Year:           2020,
		Rating:         "7.0",
		Genre:          "Drama",
		Classification: models.Classification14,
		Cast:           []models.Person{{Name: "Lead Actor"}},
		Featured:       featured,
		Detail:         models.MovieDetail{Duration: "100 min", Directors: []models.Person{{Name: "Director"}}},
	}
}

// Series builds a minimal series fixture
func Series(id, title string, featured bool) *models.Content {
	return &models.Content{
		ID:             id,
		Title:          title,
		Year:           2019,
		Rating:         "8.0",
		Genre:          "Fantasia",
		Classification: models.Classification16,
		Cast:           []models.Person{{Name: "Series Lead"}},
		Featured:       featured,
		Detail:         models.SeriesDetail{Creator: "Showrunner", Seasons: 3, Episodes: 24},
	}
}

// Run executes the conformance suite against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("ContentOrderAndFilters", func(t *testing.T) { testContentOrderAndFilters(t, newStore) })
	t.Run("PutContentReplacesInPlace", func(t *testing.T) { testPutContentReplaces(t, newStore) })
	t.Run("ContentNotFound", func(t *testing.T) { testContentNotFound(t, newStore) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore) })
	t.Run("EntriesRoundTrip", func(t *testing.T) { testEntriesRoundTrip(t, newStore) })
	t.Run("AppendAllowsDuplicates", func(t *testing.T) { testAppendAllowsDuplicates(t, newStore) })
	t.Run("InsertIfAbsentIsAtomic", func(t *testing.T) { testInsertIfAbsentConcurrent(t, newStore) })
	t.Run("DeleteEntry", func(t *testing.T) { testDeleteEntry(t, newStore) })
}

func open(t *testing.T, newStore Factory) store.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ids(items []*models.Content) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func testContentOrderAndFilters(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	seed := []*models.Content{
		Movie("m2", "Second Movie", false),
		Series("s1", "First Series", true),
		Movie("m1", "First Movie", true),
		Series("s2", "Second Series", false),
	}
	for _, c := range seed {
		require.NoError(t, s.PutContent(ctx, c))
	}

	all, err := s.FindContent(ctx, store.ContentQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "s1", "m1", "s2"}, ids(all))

	again, err := s.FindContent(ctx, store.ContentQuery{})
	require.NoError(t, err)
	assert.Equal(t, ids(all), ids(again))

	movies, err := s.FindContent(ctx, store.ContentQuery{Type: models.ContentTypeMovie})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, ids(movies))

	featured, err := s.FindContent(ctx, store.ContentQuery{FeaturedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "m1"}, ids(featured))

	featuredSeries, err := s.FindContent(ctx, store.ContentQuery{Type: models.ContentTypeSeries, FeaturedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(featuredSeries))

	got, err := s.GetContent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeSeries, got.Type())
	assert.Equal(t, models.SeriesDetail{Creator: "Showrunner", Seasons: 3, Episodes: 24}, got.Detail)
	assert.Equal(t, seed[1].Cast, got.Cast)
}

func testPutContentReplaces(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	require.NoError(t, s.PutContent(ctx, Movie("a", "A", false)))
	require.NoError(t, s.PutContent(ctx, Movie("b", "B", false)))
	require.NoError(t, s.PutContent(ctx, Movie("a", "A renamed", true)))

	all, err := s.FindContent(ctx, store.ContentQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids(all))
	assert.Equal(t, "A renamed", all[0].Title)
	assert.True(t, all[0].Featured)

	err = s.PutContent(ctx, &models.Content{ID: "broken", Title: "No detail"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func testContentNotFound(t *testing.T, newStore Factory) {
	s := open(t, newStore)

	_, err := s.GetContent(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testUsers(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	_, err := s.FindUserByUsername(ctx, "demo")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.InsertUser(ctx, &models.User{ID: "u1", Username: "demo", Password: "demo"}))
	require.NoError(t, s.InsertUser(ctx, &models.User{ID: "u2", Username: "demo", Password: "other"}))

	u, err := s.FindUserByUsername(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = s.FindUserByUsername(ctx, "Demo")
	assert.ErrorIs(t, err, models.ErrNotFound)

	u, err = s.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "other", u.Password)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	entries, err := s.ListEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func entry(id, userID, contentID string) *models.UserListEntry {
	return &models.UserListEntry{ID: id, UserID: userID, ContentID: contentID, AddedAt: time.Now().UTC()}
}

func testEntriesRoundTrip(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)
	require.NoError(t, s.InsertUser(ctx, &models.User{ID: "u1", Username: "demo"}))

	require.NoError(t, s.InsertEntryIfAbsent(ctx, entry("e1", "u1", "c2")))
	require.NoError(t, s.InsertEntryIfAbsent(ctx, entry("e2", "u1", "c1")))
	require.NoError(t, s.InsertEntryIfAbsent(ctx, entry("e3", "u2", "c1")))

	err := s.InsertEntryIfAbsent(ctx, entry("e4", "u1", "c2"))
	assert.ErrorIs(t, err, models.ErrAlreadyInList)

	entries, err := s.ListEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c2", entries[0].ContentID)
	assert.Equal(t, "c1", entries[1].ContentID)

	all, err := s.ListAllEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	removed, err := s.DeleteEntries(ctx, "u1", "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = s.DeleteEntries(ctx, "u1", "c2")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	entries, err = s.ListEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ContentID)
}

func testAppendAllowsDuplicates(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	require.NoError(t, s.AppendEntry(ctx, entry("e1", "u1", "c1")))
	require.NoError(t, s.AppendEntry(ctx, entry("e2", "u1", "c1")))

	entries, err := s.ListEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	removed, err := s.DeleteEntries(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func testInsertIfAbsentConcurrent(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.InsertEntryIfAbsent(ctx, entry(fmt.Sprintf("e%d", i), "u1", "c1"))
			if err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrAlreadyInList)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	entries, err := s.ListEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func testDeleteEntry(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	require.NoError(t, s.AppendEntry(ctx, entry("e1", "u1", "c1")))
	require.NoError(t, s.DeleteEntry(ctx, "e1"))
	assert.ErrorIs(t, s.DeleteEntry(ctx, "e1"), models.ErrNotFound)

	entries, err := s.ListEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

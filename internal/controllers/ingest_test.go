package controllers

import (
	"context"
	"testing"

	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/parsers"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	historyEpisodesDoc = `[
		{"id": 1001, "watched_at": "2023-01-01T00:00:00.000Z", "action": "watch", "type": "episode",
			"episode": {"season": 1, "number": 1, "title": "Pilot", "ids": {"trakt": 10}},
			"show": {"title": "Show One", "year": 2020, "ids": {"trakt": 1, "slug": "show-one"}}},
		{"id": 1002, "watched_at": "2023-01-02T00:00:00.000Z", "action": "watch", "type": "episode",
			"episode": {"season": 1, "number": 2, "title": "Second", "ids": {"trakt": 11}},
			"show": {"title": "Show One", "year": 2020, "ids": {"trakt": 1, "slug": "show-one"}}}
	]`
	historyMoviesDoc = `[
		{"id": 2001, "watched_at": "2023-02-01T00:00:00.000Z", "action": "watch", "type": "movie",
			"movie": {"title": "TRON", "year": 1982, "ids": {"trakt": 12, "slug": "tron-1982"}}}
	]`
	collectionShowsDoc = `[
		{"last_collected_at": "2023-03-01T00:00:00.000Z", "show": {"title": "Show Two", "year": 2019, "ids": {"trakt": 2}},
			"seasons": [{"number": 1, "episodes": [{"number": 1}, {"number": 2}]}]}
	]`
	collectionEpisodesDoc = `[
		{"last_collected_at": "2023-03-01T00:00:00.000Z", "show": {"title": "Show Two", "year": 2019, "ids": {"trakt": 2}},
			"seasons": [{"number": 1, "episodes": [
				{"number": 1, "collected_at": "2023-03-01T00:00:00.000Z"},
				{"number": 2, "collected_at": "2023-03-02T00:00:00.000Z"}
			]}]}
	]`
	collectionMoviesDoc = `[
		{"collected_at": "2023-04-01T00:00:00.000Z", "movie": {"title": "TRON", "year": 1982, "ids": {"trakt": 12}}}
	]`
	ratingsMoviesDoc = `[
		{"rated_at": "2023-03-01T10:00:00.000Z", "rating": 8, "type": "movie", "movie": {"title": "Five", "year": 2005, "ids": {"trakt": 5}}},
		{"rated_at": "2023-03-01T10:00:00.000Z", "rating": 8, "type": "movie", "movie": {"title": "Five", "year": 2005, "ids": {"trakt": 5}}}
	]`
	watchlistShowsDoc = `[
		{"id": 9001, "rank": 1, "listed_at": "2023-05-01T00:00:00.000Z", "type": "show",
			"show": {"title": "Show Three", "year": 2021, "ids": {"trakt": 3}}}
	]`
)

func newTestIngest(t *testing.T, catalog CatalogFetcher) (*IngestController, *models.Database, *metrics.Metrics) {
	t.Helper()
	db := newTestDB(t)
	m := metrics.New()
	logger := utils.NewDiscardLogger()
	resolver := NewPrerequisiteResolver(testConfig(), db, catalog, &countingPacer{}, m, logger)
	return NewIngestController(db, resolver, parsers.NewParser(logger), m, logger), db, m
}

func categoryReport(t *testing.T, report *IngestReport, category string) *CategoryReport {
	t.Helper()
	for _, c := range report.Categories {
		if c.Category == category {
			return c
		}
	}
	t.Fatalf("no report for category %s", category)
	return nil
}

func TestIngestHistory(t *testing.T) {
	ctx := context.Background()
	ingest, db, _ := newTestIngest(t, newFakeCatalog())

	report, err := ingest.IngestAll(ctx, memorySource{
		parsers.HistoryEpisodes: historyEpisodesDoc,
		parsers.HistoryMovies:   historyMoviesDoc,
	})
	require.NoError(t, err)
	assert.Empty(t, report.Failed())

	counts, err := db.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.TableShow])
	assert.Equal(t, int64(2), counts[models.TableEpisode])
	assert.Equal(t, int64(1), counts[models.TableMovie])
	assert.Equal(t, int64(3), counts[models.TableWatchLog])

	watches, err := db.RecentWatches(ctx, models.MediaTypeEpisode, 10)
	require.NoError(t, err)
	require.Len(t, watches, 2)
	assert.Equal(t, int64(1002), watches[0].ID)

	violations, err := db.ValidateReferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestIngestCollectionResolvesShowCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()
	catalog.addCatalog(t, 2, 1, 3, 200)
	ingest, db, m := newTestIngest(t, catalog)

	report, err := ingest.IngestAll(ctx, memorySource{
		parsers.CollectionShows:    collectionShowsDoc,
		parsers.CollectionEpisodes: collectionEpisodesDoc,
		parsers.CollectionMovies:   collectionMoviesDoc,
	})
	require.NoError(t, err)
	assert.Empty(t, report.Failed())

	require.NotNil(t, report.Resolution)
	assert.Equal(t, []int64{2}, report.Resolution.Resolved)
	assert.Equal(t, []int64{2}, catalog.calls)

	// The whole catalog is stored, not only the collected episodes
	n, err := db.CountWhere(ctx, models.TableEpisode, "show_id = ?", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = db.CountWhere(ctx, models.TableCollected, "type = ?", models.MediaTypeEpisode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = db.CountWhere(ctx, models.TableCollected, "type = ? AND media_id IN ?", models.MediaTypeEpisode, []int64{200, 201})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.CountWhere(ctx, models.TableCollected, "type = ?", models.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Two collected episodes plus the collected movie
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsWritten.WithLabelValues(models.TableCollected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("season_catalog", "ok")))

	violations, err := db.ValidateReferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestIngestAbortedResolutionWithholdsCollectedEpisodes(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()
	catalog.errs[2] = &trakt.APIError{StatusCode: 503, Method: "GET", Path: "/shows/2/seasons"}
	ingest, db, _ := newTestIngest(t, catalog)

	report, err := ingest.IngestAll(ctx, memorySource{
		parsers.CollectionEpisodes: collectionEpisodesDoc,
		parsers.CollectionMovies:   collectionMoviesDoc,
	})
	require.NoError(t, err)

	episodes := categoryReport(t, report, parsers.CollectionEpisodes)
	assert.ErrorIs(t, episodes.Err, ErrResolutionAborted)
	require.Len(t, report.Failed(), 1)

	n, err := db.CountWhere(ctx, models.TableCollected, "type = ?", models.MediaTypeEpisode)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Later categories still run
	n, err = db.CountWhere(ctx, models.TableCollected, "type = ?", models.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()
	catalog.addCatalog(t, 2, 1, 2, 200)
	ingest, db, _ := newTestIngest(t, catalog)

	src := memorySource{
		parsers.HistoryEpisodes:    historyEpisodesDoc,
		parsers.HistoryMovies:      historyMoviesDoc,
		parsers.CollectionShows:    collectionShowsDoc,
		parsers.CollectionEpisodes: collectionEpisodesDoc,
		parsers.CollectionMovies:   collectionMoviesDoc,
		parsers.RatingsMovies:      ratingsMoviesDoc,
		parsers.WatchlistShows:     watchlistShowsDoc,
	}

	first, err := ingest.IngestAll(ctx, src)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Written())
	before, err := db.TableCounts(ctx)
	require.NoError(t, err)

	second, err := ingest.IngestAll(ctx, src)
	require.NoError(t, err)
	assert.Empty(t, second.Written())
	after, err := db.TableCounts(ctx)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestIngestMissingBundlesAreSkipped(t *testing.T) {
	ctx := context.Background()
	ingest, db, _ := newTestIngest(t, newFakeCatalog())

	report, err := ingest.IngestAll(ctx, memorySource{parsers.HistoryMovies: `[]`})
	require.NoError(t, err)

	require.Len(t, report.Categories, len(parsers.Categories))
	for _, c := range report.Categories {
		assert.True(t, c.Missing, c.Category)
		assert.NoError(t, c.Err, c.Category)
	}

	counts, err := db.TableCounts(ctx)
	require.NoError(t, err)
	for table, n := range counts {
		assert.Zero(t, n, table)
	}
}

func TestIngestIdenticalRatingsCollapse(t *testing.T) {
	ctx := context.Background()
	ingest, db, _ := newTestIngest(t, newFakeCatalog())

	report, err := ingest.IngestAll(ctx, memorySource{parsers.RatingsMovies: ratingsMoviesDoc})
	require.NoError(t, err)

	ratings := categoryReport(t, report, parsers.RatingsMovies)
	assert.Equal(t, 2, ratings.Entries)
	assert.Equal(t, int64(1), ratings.Written[models.TableRatings])

	n, err := db.CountWhere(ctx, models.TableRatings, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The stored columns hash back to the stored id
	require.NoError(t, models.EachRow(ctx, db, func(row models.RatedEntry) error {
		assert.Equal(t, row.ID, normalize.Rated(row.Type, row.MediaID, row.Rating, row.RatedAt).ID)
		return nil
	}))
}

func TestIngestWithholdsDanglingEvents(t *testing.T) {
	ctx := context.Background()
	ingest, db, m := newTestIngest(t, newFakeCatalog())

	// The episode carries no show, so no episode row can be created for it
	report, err := ingest.IngestAll(ctx, memorySource{
		parsers.RatingsEpisodes: `[{"rated_at": "2023-03-01T10:00:00.000Z", "rating": 7, "type": "episode",
			"episode": {"season": 1, "number": 1, "ids": {"trakt": 4242}}}]`,
		parsers.WatchlistShows: watchlistShowsDoc,
	})
	require.NoError(t, err)

	ratings := categoryReport(t, report, parsers.RatingsEpisodes)
	assert.NoError(t, ratings.Err)
	assert.Equal(t, 1, ratings.Withheld)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsWithheld.WithLabelValues(parsers.RatingsEpisodes)))

	n, err := db.CountWhere(ctx, models.TableRatings, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.CountWhere(ctx, models.TableWatchlist, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIngestCancelled(t *testing.T) {
	ingest, _, _ := newTestIngest(t, newFakeCatalog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ingest.IngestAll(ctx, memorySource{parsers.HistoryMovies: historyMoviesDoc})
	assert.ErrorIs(t, err, context.Canceled)
}

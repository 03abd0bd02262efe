package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtended struct {
	genres    []trakt.Genre
	genresErr error
	shows     map[string]string
	movies    map[string]string
	episodes  map[string]string
	requests  []string
}

func (f *fakeExtended) GetGenres(context.Context) ([]trakt.Genre, error) {
	f.requests = append(f.requests, "genres")
	return f.genres, f.genresErr
}

func (f *fakeExtended) GetExtendedShow(_ context.Context, key string) (*trakt.ExtendedShow, error) {
	f.requests = append(f.requests, "show "+key)
	doc, ok := f.shows[key]
	if !ok {
		return nil, &trakt.APIError{StatusCode: 404, Method: "GET", Path: "/shows/" + key}
	}
	var out trakt.ExtendedShow
	return &out, json.Unmarshal([]byte(doc), &out)
}

func (f *fakeExtended) GetExtendedMovie(_ context.Context, key string) (*trakt.ExtendedMovie, error) {
	f.requests = append(f.requests, "movie "+key)
	doc, ok := f.movies[key]
	if !ok {
		return nil, fmt.Errorf("%w: connection reset", trakt.ErrLookupFailure)
	}
	var out trakt.ExtendedMovie
	return &out, json.Unmarshal([]byte(doc), &out)
}

func (f *fakeExtended) GetExtendedEpisode(_ context.Context, show string, season, number int) (*trakt.ExtendedEpisode, error) {
	key := fmt.Sprintf("%s/%d/%d", show, season, number)
	f.requests = append(f.requests, "episode "+key)
	doc, ok := f.episodes[key]
	if !ok {
		return nil, &trakt.APIError{StatusCode: 404, Method: "GET", Path: key}
	}
	var out trakt.ExtendedEpisode
	return &out, json.Unmarshal([]byte(doc), &out)
}

func seedEntities(t *testing.T, db *models.Database) {
	t.Helper()
	ctx := context.Background()
	slug := "show-one"
	movieSlug := "tron-1982"

	_, err := models.InsertOrIgnore(ctx, db, []models.Show{{Type: models.MediaTypeShow, ID: 1, TraktID: 1, Title: "Show One", TraktSlug: &slug}})
	require.NoError(t, err)
	_, err = models.InsertOrIgnore(ctx, db, []models.Episode{
		{Type: models.MediaTypeEpisode, ID: 10, TraktID: 10, ShowID: 1, Season: 1, Number: 1},
		{Type: models.MediaTypeEpisode, ID: 11, TraktID: 11, ShowID: 1, Season: 1, Number: 2},
	})
	require.NoError(t, err)
	_, err = models.InsertOrIgnore(ctx, db, []models.Movie{
		{Type: models.MediaTypeMovie, ID: 12, TraktID: 12, Title: "TRON", TraktSlug: &movieSlug},
		{Type: models.MediaTypeMovie, ID: 13, TraktID: 13, Title: "Unreachable"},
	})
	require.NoError(t, err)
	// Only episode 10 was watched, so only it gets extended data
	_, err = models.InsertOrIgnore(ctx, db, []models.WatchLogEntry{{ID: 1, Type: models.MediaTypeEpisode, MediaID: 10, WatchedAt: "2023-01-01T00:00:00.000Z"}})
	require.NoError(t, err)
}

func newTestExtended(t *testing.T, fetcher ExtendedFetcher) (*ExtendedController, *models.Database, *metrics.Metrics, *countingPacer) {
	t.Helper()
	db := newTestDB(t)
	m := metrics.New()
	pacer := &countingPacer{}
	return NewExtendedController(db, fetcher, pacer, m, utils.NewDiscardLogger()), db, m, pacer
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeExtended{
		genres: []trakt.Genre{{Name: "Drama", Slug: "drama"}, {Name: "Science Fiction", Slug: "science-fiction"}},
		shows: map[string]string{
			"show-one": `{"title": "Show One", "ids": {"trakt": 1, "slug": "show-one"}, "network": "AMC",
				"genres": ["drama", "war-and-politics"]}`,
		},
		movies: map[string]string{
			"tron-1982": `{"title": "TRON", "year": 1982, "ids": {"trakt": 12, "slug": "tron-1982"}, "released": "1982-07-09",
				"genres": ["science fiction"]}`,
		},
		episodes: map[string]string{
			"show-one/1/1": `{"season": 1, "number": 1, "title": "Pilot", "ids": {"trakt": 10}, "number_abs": 1}`,
		},
	}
	ctrl, db, m, pacer := newTestExtended(t, fetcher)
	seedEntities(t, db)

	report, err := ctrl.Backfill(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"genres", "show show-one", "movie tron-1982", "movie 13", "episode show-one/1/1"}, fetcher.requests)
	assert.Equal(t, len(fetcher.requests)-1, pacer.waits)

	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, int64(1), report.Written[models.TableExtendedShow])
	assert.Equal(t, int64(1), report.Written[models.TableExtendedMovie])
	assert.Equal(t, int64(1), report.Written[models.TableExtendedEpisode])
	// Two catalog genres plus one created from the show's labels
	assert.Equal(t, int64(3), report.Written[models.TableGenre])
	assert.Equal(t, int64(3), report.Written[models.TableGenreMapping])

	genres, err := db.Genres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 3)
	assert.Equal(t, "War And Politics", genres[2].Name)

	scifi := normalize.Genre(trakt.Genre{Name: "Science Fiction", Slug: "science-fiction"})
	n, err := db.CountWhere(ctx, models.TableGenreMapping, "type = ? AND media_id = ? AND genre_id = ?", models.MediaTypeMovie, 12, scifi.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("extended_movie", "failed")))

	violations, err := db.ValidateReferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)

	// A second pass only retries what is still missing
	fetcher.requests = nil
	report, err = ctrl.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"genres", "movie 13"}, fetcher.requests)
	assert.Empty(t, report.Written)
}

func TestBackfillSelectedKinds(t *testing.T) {
	fetcher := &fakeExtended{genresErr: fmt.Errorf("%w: down", trakt.ErrLookupFailure)}
	ctrl, db, _, _ := newTestExtended(t, fetcher)
	seedEntities(t, db)

	report, err := ctrl.Backfill(context.Background(), models.MediaTypeShow)
	require.NoError(t, err)

	assert.Equal(t, []string{"genres", "show show-one"}, fetcher.requests)
	assert.Equal(t, 1, report.NotFound)
}

func TestBackfillUnknownKind(t *testing.T) {
	ctrl, _, _, _ := newTestExtended(t, &fakeExtended{})
	_, err := ctrl.Backfill(context.Background(), models.MediaType("season"))
	assert.Error(t, err)
}

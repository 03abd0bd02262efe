package controllers

import (
	"context"
	"fmt"
	"testing"

	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWritesShowsBeforeCatalogs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	catalog := newFakeCatalog()
	catalog.addCatalog(t, 1, 1, 3, 100)
	catalog.addCatalog(t, 2, 1, 2, 200)
	catalog.onFetch = func(int64) {
		n, err := db.CountWhere(ctx, models.TableShow, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n, "every show row is present before the first lookup")
	}

	pacer := &countingPacer{}
	resolver := newTestResolver(db, catalog, pacer)

	report, err := resolver.Resolve(ctx, []models.Show{testShow(1, "Show One"), testShow(2, "Show Two")})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, catalog.calls)
	assert.Equal(t, 1, pacer.waits)
	assert.Equal(t, []int64{1, 2}, report.Resolved)
	assert.Equal(t, int64(5), report.EpisodesWritten)

	index, err := db.EpisodeIndex(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(201), index[models.EpisodeKey{ShowID: 2, Season: 1, Number: 2}])
}

func TestResolveDeduplicatesShows(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addCatalog(t, 7, 1, 1, 700)
	pacer := &countingPacer{}
	resolver := newTestResolver(newTestDB(t), catalog, pacer)

	report, err := resolver.Resolve(context.Background(), []models.Show{testShow(7, "Seven"), testShow(7, "Seven")})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Shows)
	assert.Equal(t, []int64{7}, catalog.calls)
	assert.Zero(t, pacer.waits)
}

func TestResolveNothingToDo(t *testing.T) {
	catalog := newFakeCatalog()
	resolver := newTestResolver(newTestDB(t), catalog, &countingPacer{})

	report, err := resolver.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Shows)
	assert.Empty(t, catalog.calls)
}

func TestResolveNotFoundResetsFailureCount(t *testing.T) {
	lookupErr := fmt.Errorf("%w: status 502", trakt.ErrLookupFailure)

	catalog := newFakeCatalog()
	catalog.errs[1] = lookupErr
	catalog.errs[2] = lookupErr
	// show 3 has no catalog: not found
	catalog.errs[4] = lookupErr
	catalog.errs[5] = lookupErr
	catalog.addCatalog(t, 6, 1, 2, 600)

	var shows []models.Show
	for id := int64(1); id <= 6; id++ {
		shows = append(shows, testShow(id, fmt.Sprintf("Show %d", id)))
	}

	pacer := &countingPacer{}
	resolver := newTestResolver(newTestDB(t), catalog, pacer)

	report, err := resolver.Resolve(context.Background(), shows)
	require.NoError(t, err)

	assert.Len(t, catalog.calls, 6)
	assert.Equal(t, 5, pacer.waits)
	assert.Equal(t, []int64{3}, report.NotFound)
	assert.Equal(t, []int64{6}, report.Resolved)
	assert.Len(t, report.Failed, 4)
	assert.ErrorIs(t, report.Failed[1], trakt.ErrLookupFailure)
}

func TestResolveAbortsAfterConsecutiveFailures(t *testing.T) {
	catalog := newFakeCatalog()
	var shows []models.Show
	for id := int64(1); id <= 5; id++ {
		catalog.errs[id] = &trakt.APIError{StatusCode: 500, Method: "GET", Path: fmt.Sprintf("/shows/%d/seasons", id)}
		shows = append(shows, testShow(id, fmt.Sprintf("Show %d", id)))
	}

	resolver := newTestResolver(newTestDB(t), catalog, &countingPacer{})

	report, err := resolver.Resolve(context.Background(), shows)
	require.ErrorIs(t, err, ErrResolutionAborted)
	assert.ErrorIs(t, err, trakt.ErrLookupFailure)
	assert.Equal(t, []int64{1, 2, 3}, catalog.calls)
	assert.Len(t, report.Failed, 3)
}

func TestResolveAbortsWhenEveryShowFails(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.errs[1] = fmt.Errorf("%w: timeout", trakt.ErrLookupFailure)
	catalog.errs[2] = fmt.Errorf("%w: timeout", trakt.ErrLookupFailure)

	resolver := newTestResolver(newTestDB(t), catalog, &countingPacer{})

	_, err := resolver.Resolve(context.Background(), []models.Show{testShow(1, "One"), testShow(2, "Two")})
	assert.ErrorIs(t, err, ErrResolutionAborted)
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addCatalog(t, 1, 1, 1, 100)
	catalog.addCatalog(t, 2, 1, 1, 200)

	ctx, cancel := context.WithCancel(context.Background())
	catalog.onFetch = func(int64) { cancel() }

	resolver := newTestResolver(newTestDB(t), catalog, &countingPacer{})
	_, err := resolver.Resolve(ctx, []models.Show{testShow(1, "One"), testShow(2, "Two")})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{1}, catalog.calls)
}

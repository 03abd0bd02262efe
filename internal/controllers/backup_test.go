package controllers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/amaumene/traktdb/internal/bundle"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/parsers"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUser struct {
	checkErr error
	bodies   map[string]string
	errs     map[string]error
	fetched  []string
}

func (f *fakeUser) CheckUser(context.Context, string) error {
	return f.checkErr
}

func (f *fakeUser) FetchUserCategory(_ context.Context, _ string, item, endpoint string) ([]byte, error) {
	name := bundle.FileName(item, endpoint)
	f.fetched = append(f.fetched, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	if body, ok := f.bodies[name]; ok {
		return []byte(body), nil
	}
	return []byte("[]"), nil
}

func newTestBackup(fetcher UserFetcher) (*BackupController, *countingPacer) {
	pacer := &countingPacer{}
	return NewBackupController(fetcher, pacer, metrics.New(), utils.NewDiscardLogger()), pacer
}

func TestBackupWritesNonEmptyCategories(t *testing.T) {
	fetcher := &fakeUser{
		bodies: map[string]string{
			"history_movies.json": historyMoviesDoc,
			"stats.json":          `{"movies": {"watched": 1}}`,
		},
		errs: map[string]error{
			"ratings_seasons.json": &trakt.APIError{StatusCode: 500, Method: "GET", Path: "/users/me/ratings/seasons"},
		},
	}
	ctrl, pacer := newTestBackup(fetcher)

	dir := filepath.Join(t.TempDir(), "20240101120000")
	writer, err := bundle.NewWriter(dir)
	require.NoError(t, err)

	report, err := ctrl.Backup(context.Background(), "me", writer)
	require.NoError(t, err)

	assert.Len(t, fetcher.fetched, len(BackupTargets))
	assert.Equal(t, len(BackupTargets), pacer.waits)
	assert.Equal(t, []string{"history_movies.json", "stats.json"}, report.Written)
	assert.Contains(t, report.Failed, "ratings_seasons.json")
	assert.Len(t, report.Empty, len(BackupTargets)-3)

	_, err = os.Stat(filepath.Join(dir, "watched_movies.json"))
	assert.True(t, os.IsNotExist(err))

	// The written bundle is readable by ingestion
	entries, err := bundle.NewReader(dir).Read(parsers.HistoryMovies)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBackupUnknownUser(t *testing.T) {
	fetcher := &fakeUser{checkErr: fmt.Errorf("%w: ghost", trakt.ErrUserNotFound)}
	ctrl, _ := newTestBackup(fetcher)

	writer, err := bundle.NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = ctrl.Backup(context.Background(), "ghost", writer)
	assert.ErrorIs(t, err, trakt.ErrUserNotFound)
	assert.Empty(t, fetcher.fetched)
}

func TestBackupStopsWhenUserDisappears(t *testing.T) {
	fetcher := &fakeUser{errs: map[string]error{
		"watched_episodes.json": fmt.Errorf("failed to fetch watched/episodes: %w", trakt.ErrUserNotFound),
	}}
	ctrl, _ := newTestBackup(fetcher)

	writer, err := bundle.NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = ctrl.Backup(context.Background(), "me", writer)
	assert.ErrorIs(t, err, trakt.ErrUserNotFound)
	assert.Equal(t, []string{"watched_movies.json", "watched_episodes.json"}, fetcher.fetched)
}

package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *models.Database {
	t.Helper()
	db, err := models.NewDatabase(":memory:", 100, utils.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

// fakeCatalog serves season catalogs from memory and records every request
type fakeCatalog struct {
	mu       sync.Mutex
	catalogs map[int64][]trakt.Season
	errs     map[int64]error
	calls    []int64
	// onFetch runs before each request returns
	onFetch func(showID int64)
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		catalogs: make(map[int64][]trakt.Season),
		errs:     make(map[int64]error),
	}
}

func (f *fakeCatalog) GetSeasonCatalog(_ context.Context, showID int64) ([]trakt.Season, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, showID)
	if f.onFetch != nil {
		f.onFetch(showID)
	}
	if err, ok := f.errs[showID]; ok {
		return nil, err
	}
	if seasons, ok := f.catalogs[showID]; ok {
		return seasons, nil
	}
	return nil, fmt.Errorf("%w: no catalog for show %d", trakt.ErrNotFound, showID)
}

// addCatalog registers one season with episode ids firstID, firstID+1, ...
func (f *fakeCatalog) addCatalog(t *testing.T, showID int64, season, episodes int, firstID int64) {
	t.Helper()
	parts := make([]string, 0, episodes)
	for i := 0; i < episodes; i++ {
		parts = append(parts, fmt.Sprintf(`{"season": %d, "number": %d, "title": "Episode %d", "ids": {"trakt": %d}}`,
			season, i+1, i+1, firstID+int64(i)))
	}
	doc := fmt.Sprintf(`[{"number": %d, "ids": {"trakt": %d}, "episodes": [%s]}]`, season, showID*1000+int64(season), strings.Join(parts, ","))

	var seasons []trakt.Season
	require.NoError(t, json.Unmarshal([]byte(doc), &seasons))
	f.catalogs[showID] = append(f.catalogs[showID], seasons...)
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func testConfig() *config.Config {
	return &config.Config{
		MaxConsecutiveFailures: 3,
		BatchSize:              100,
	}
}

func newTestResolver(db *models.Database, catalog CatalogFetcher, pacer Waiter) *PrerequisiteResolver {
	return NewPrerequisiteResolver(testConfig(), db, catalog, pacer, metrics.New(), utils.NewDiscardLogger())
}

func testShow(id int64, title string) models.Show {
	return models.Show{Type: models.MediaTypeShow, ID: id, TraktID: id, Title: title}
}

// memorySource is a BundleSource backed by inline JSON documents
type memorySource map[string]string

func (m memorySource) Read(category string) ([]json.RawMessage, error) {
	doc, ok := m[category]
	if !ok {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries, nil
}

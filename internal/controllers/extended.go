package controllers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ExtendedFetcher returns full upstream records
type ExtendedFetcher interface {
	GetGenres(ctx context.Context) ([]trakt.Genre, error)
	GetExtendedShow(ctx context.Context, slugOrID string) (*trakt.ExtendedShow, error)
	GetExtendedMovie(ctx context.Context, slugOrID string) (*trakt.ExtendedMovie, error)
	GetExtendedEpisode(ctx context.Context, showSlugOrID string, season, number int) (*trakt.ExtendedEpisode, error)
}

// BackfillReport describes one extended metadata pass
type BackfillReport struct {
	Written  map[string]int64
	Fetched  int
	NotFound int
	Failed   int
}

// ExtendedController fills the extended tables for entities that lack them
type ExtendedController struct {
	db      *models.Database
	fetcher ExtendedFetcher
	pacer   Waiter
	metrics *metrics.Metrics
	logger  *logrus.Logger

	requests int
}

// NewExtendedController creates a new extended metadata controller
func NewExtendedController(db *models.Database, fetcher ExtendedFetcher, pacer Waiter, m *metrics.Metrics, logger *logrus.Logger) *ExtendedController {
	return &ExtendedController{
		db:      db,
		fetcher: fetcher,
		pacer:   pacer,
		metrics: m,
		logger:  logger,
	}
}

// Backfill writes the genre catalog, then fetches and stores the extended
// record of every show, movie and episode that has none yet. kinds limits the
// pass; no kinds means all three. A failed item is logged and skipped.
func (c *ExtendedController) Backfill(ctx context.Context, kinds ...models.MediaType) (*BackfillReport, error) {
	if len(kinds) == 0 {
		kinds = []models.MediaType{models.MediaTypeShow, models.MediaTypeMovie, models.MediaTypeEpisode}
	}
	c.requests = 0

	if err := c.db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	report := &BackfillReport{Written: make(map[string]int64)}

	genres, err := c.loadGenres(ctx, report)
	if err != nil {
		return report, err
	}

	for _, kind := range kinds {
		var err error
		switch kind {
		case models.MediaTypeShow:
			err = c.backfillShows(ctx, genres, report)
		case models.MediaTypeMovie:
			err = c.backfillMovies(ctx, genres, report)
		case models.MediaTypeEpisode:
			err = c.backfillEpisodes(ctx, report)
		default:
			err = fmt.Errorf("unsupported extended kind %q", kind)
		}
		if err != nil {
			return report, err
		}
	}

	c.logger.WithFields(logrus.Fields{
		"fetched":   report.Fetched,
		"not_found": report.NotFound,
		"failed":    report.Failed,
		"written":   report.Written,
	}).Info("Extended metadata backfill completed")

	return report, nil
}

// loadGenres stores the upstream genre catalog and indexes every known genre.
// An unreachable catalog is not fatal: unknown genres are created on demand.
func (c *ExtendedController) loadGenres(ctx context.Context, report *BackfillReport) (*normalize.GenreIndex, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	upstream, err := c.fetcher.GetGenres(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.metrics.Lookup("genres", "failed")
		c.logger.WithError(err).Warn("Failed to fetch genre catalog, continuing with stored genres")
	} else {
		c.metrics.Lookup("genres", "ok")
		rows := make([]models.Genre, 0, len(upstream))
		for _, g := range upstream {
			rows = append(rows, normalize.Genre(g))
		}
		if err := c.insert(ctx, report, models.TableGenre, rows); err != nil {
			return nil, err
		}
	}

	stored, err := c.db.Genres(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.NewGenreIndex(stored), nil
}

func (c *ExtendedController) backfillShows(ctx context.Context, genres *normalize.GenreIndex, report *BackfillReport) error {
	shows, err := c.db.ShowsWithoutExtended(ctx)
	if err != nil {
		return err
	}
	c.logger.WithField("shows", len(shows)).Info("Backfilling extended shows")

	for _, show := range shows {
		key := slugOrID(show.TraktSlug, show.ID)
		var record *trakt.ExtendedShow
		ok, err := c.fetch(ctx, "extended_show", key, report, func(ctx context.Context) error {
			var err error
			record, err = c.fetcher.GetExtendedShow(ctx, key)
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		row, err := normalize.ExtendedShow(record)
		if err != nil {
			c.skipMalformed(report, "extended_show", key, err)
			continue
		}
		if err := c.insert(ctx, report, models.TableExtendedShow, []models.ExtendedShow{row}); err != nil {
			return err
		}
		if err := c.mapGenres(ctx, report, genres, models.MediaTypeShow, row.ID, record.Genres); err != nil {
			return err
		}
	}
	return nil
}

func (c *ExtendedController) backfillMovies(ctx context.Context, genres *normalize.GenreIndex, report *BackfillReport) error {
	movies, err := c.db.MoviesWithoutExtended(ctx)
	if err != nil {
		return err
	}
	c.logger.WithField("movies", len(movies)).Info("Backfilling extended movies")

	for _, movie := range movies {
		key := slugOrID(movie.TraktSlug, movie.ID)
		var record *trakt.ExtendedMovie
		ok, err := c.fetch(ctx, "extended_movie", key, report, func(ctx context.Context) error {
			var err error
			record, err = c.fetcher.GetExtendedMovie(ctx, key)
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		row, err := normalize.ExtendedMovie(record)
		if err != nil {
			c.skipMalformed(report, "extended_movie", key, err)
			continue
		}
		if err := c.insert(ctx, report, models.TableExtendedMovie, []models.ExtendedMovie{row}); err != nil {
			return err
		}
		if err := c.mapGenres(ctx, report, genres, models.MediaTypeMovie, row.ID, record.Genres); err != nil {
			return err
		}
	}
	return nil
}

func (c *ExtendedController) backfillEpisodes(ctx context.Context, report *BackfillReport) error {
	episodes, err := c.db.EpisodesWithoutExtended(ctx)
	if err != nil {
		return err
	}
	c.logger.WithField("episodes", len(episodes)).Info("Backfilling extended episodes")

	for _, episode := range episodes {
		showKey := strconv.FormatInt(episode.ShowID, 10)
		if episode.Show != nil {
			showKey = slugOrID(episode.Show.TraktSlug, episode.ShowID)
		}
		key := fmt.Sprintf("%s S%02dE%02d", showKey, episode.Season, episode.Number)

		var record *trakt.ExtendedEpisode
		ok, err := c.fetch(ctx, "extended_episode", key, report, func(ctx context.Context) error {
			var err error
			record, err = c.fetcher.GetExtendedEpisode(ctx, showKey, episode.Season, episode.Number)
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		row, err := normalize.ExtendedEpisode(record, episode.ShowID)
		if err != nil {
			c.skipMalformed(report, "extended_episode", key, err)
			continue
		}
		if err := c.insert(ctx, report, models.TableExtendedEpisode, []models.ExtendedEpisode{row}); err != nil {
			return err
		}
	}
	return nil
}

// fetch runs one paced lookup. It reports false when the item should be
// skipped and returns an error only when the pass must stop.
func (c *ExtendedController) fetch(ctx context.Context, kind, key string, report *BackfillReport, fn func(context.Context) error) (bool, error) {
	if err := c.pace(ctx); err != nil {
		return false, err
	}

	ctx, span := otel.Tracer("traktdb/controllers").Start(ctx, "extended_fetch")
	defer span.End()
	span.SetAttributes(attribute.String("kind", kind), attribute.String("key", key))

	logger := c.logger.WithFields(logrus.Fields{"kind": kind, "key": key})

	err := fn(ctx)
	switch {
	case err == nil:
		report.Fetched++
		c.metrics.Lookup(kind, "ok")
		return true, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, trakt.ErrNotFound):
		report.NotFound++
		c.metrics.Lookup(kind, "not_found")
		logger.Warn("Extended record not found, skipping")
	default:
		report.Failed++
		c.metrics.Lookup(kind, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		logger.WithError(err).Error("Failed to fetch extended record")
	}
	return false, nil
}

func (c *ExtendedController) pace(ctx context.Context) error {
	c.requests++
	if c.requests == 1 {
		return nil
	}
	return c.pacer.Wait(ctx)
}

func (c *ExtendedController) mapGenres(ctx context.Context, report *BackfillReport, genres *normalize.GenreIndex, mediaType models.MediaType, mediaID int64, labels []string) error {
	matched, created := genres.Resolve(labels)
	if err := c.insert(ctx, report, models.TableGenre, created); err != nil {
		return err
	}

	mappings := make([]models.GenreMapping, 0, len(matched))
	for _, g := range matched {
		mappings = append(mappings, normalize.GenreMapping(mediaType, mediaID, g.ID))
	}
	return c.insert(ctx, report, models.TableGenreMapping, mappings)
}

func (c *ExtendedController) skipMalformed(report *BackfillReport, kind, key string, err error) {
	report.Failed++
	c.logger.WithFields(logrus.Fields{"kind": kind, "key": key}).WithError(err).Warn("Skipping malformed extended record")
}

func (c *ExtendedController) insert(ctx context.Context, report *BackfillReport, table string, rows interface{}) error {
	switch r := rows.(type) {
	case []models.Genre:
		return storeRows(ctx, c.db, c.metrics, report.Written, table, r)
	case []models.GenreMapping:
		return storeRows(ctx, c.db, c.metrics, report.Written, table, r)
	case []models.ExtendedShow:
		return storeRows(ctx, c.db, c.metrics, report.Written, table, r)
	case []models.ExtendedMovie:
		return storeRows(ctx, c.db, c.metrics, report.Written, table, r)
	case []models.ExtendedEpisode:
		return storeRows(ctx, c.db, c.metrics, report.Written, table, r)
	}
	return fmt.Errorf("unsupported rows %T", rows)
}

func slugOrID(slug *string, id int64) string {
	if slug != nil && *slug != "" {
		return *slug
	}
	return strconv.FormatInt(id, 10)
}

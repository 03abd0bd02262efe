package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrResolutionAborted is returned when the lookup service keeps failing and
// resolution stops early
var ErrResolutionAborted = errors.New("prerequisite resolution aborted")

// CatalogFetcher returns the season catalog of a show
type CatalogFetcher interface {
	GetSeasonCatalog(ctx context.Context, showID int64) ([]trakt.Season, error)
}

// Waiter blocks for the politeness delay between two external requests
type Waiter interface {
	Wait(ctx context.Context) error
}

// ResolutionReport describes the outcome of one resolution pass
type ResolutionReport struct {
	Shows           int
	Resolved        []int64
	NotFound        []int64
	Failed          map[int64]error
	EpisodesWritten int64
	Malformed       int
}

// PrerequisiteResolver materializes the episode catalog of every show
// referenced by collected episodes, before any collected row is written
type PrerequisiteResolver struct {
	db                     *models.Database
	fetcher                CatalogFetcher
	pacer                  Waiter
	metrics                *metrics.Metrics
	maxConsecutiveFailures int
	logger                 *logrus.Logger
}

// NewPrerequisiteResolver creates a new prerequisite resolver
func NewPrerequisiteResolver(cfg *config.Config, db *models.Database, fetcher CatalogFetcher, pacer Waiter, m *metrics.Metrics, logger *logrus.Logger) *PrerequisiteResolver {
	maxFailures := cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return &PrerequisiteResolver{
		db:                     db,
		fetcher:                fetcher,
		pacer:                  pacer,
		metrics:                m,
		maxConsecutiveFailures: maxFailures,
		logger:                 logger,
	}
}

// Resolve writes the show rows, then fetches and writes the full episode
// catalog of each distinct show in the order encountered. A lookup failure
// for one show is recorded and the loop moves on; repeated failures, or
// failure of every show, abort with ErrResolutionAborted. Store errors are
// returned as is.
func (r *PrerequisiteResolver) Resolve(ctx context.Context, shows []models.Show) (*ResolutionReport, error) {
	ctx, span := otel.Tracer("traktdb/controllers").Start(ctx, "resolve_prerequisites")
	defer span.End()

	shows = distinctShows(shows)
	report := &ResolutionReport{
		Shows:  len(shows),
		Failed: make(map[int64]error),
	}
	span.SetAttributes(attribute.Int("shows", len(shows)))
	if len(shows) == 0 {
		return report, nil
	}

	// Step 1: show rows first, so episodes can reference them
	n, err := models.InsertOrIgnore(ctx, r.db, shows)
	if err != nil {
		return report, fmt.Errorf("failed to write shows: %w", err)
	}
	r.metrics.AddRows(models.TableShow, n)

	r.logger.WithField("shows", len(shows)).Info("Resolving episode catalogs")

	// Step 2: one catalog request per show, paced
	consecutive := 0
	for i, show := range shows {
		if i > 0 {
			if err := r.pacer.Wait(ctx); err != nil {
				return report, err
			}
		}

		logger := r.logger.WithFields(logrus.Fields{
			"show_id": show.ID,
			"title":   show.Title,
		})

		written, err := r.resolveShow(ctx, show, report)
		switch {
		case err == nil:
			consecutive = 0
			report.Resolved = append(report.Resolved, show.ID)
			report.EpisodesWritten += written
			r.metrics.Lookup("season_catalog", "ok")
			logger.WithField("episodes", written).Debug("Resolved episode catalog")

		case errors.Is(err, trakt.ErrNotFound):
			consecutive = 0
			report.NotFound = append(report.NotFound, show.ID)
			r.metrics.Lookup("season_catalog", "not_found")
			logger.Warn("Show not found upstream, skipping")

		case errors.Is(err, trakt.ErrLookupFailure):
			consecutive++
			report.Failed[show.ID] = err
			r.metrics.Lookup("season_catalog", "failed")
			logger.WithError(err).Error("Failed to fetch episode catalog")

			if consecutive >= r.maxConsecutiveFailures {
				err = fmt.Errorf("%w: %d consecutive lookup failures: %w", ErrResolutionAborted, consecutive, err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "aborted")
				return report, err
			}

		default:
			// Store or context errors end the pass
			span.RecordError(err)
			return report, err
		}
	}

	if len(report.Failed) == len(shows) {
		err := fmt.Errorf("%w: every catalog lookup failed", ErrResolutionAborted)
		span.SetStatus(codes.Error, "aborted")
		return report, err
	}

	r.logger.WithFields(logrus.Fields{
		"resolved":  len(report.Resolved),
		"not_found": len(report.NotFound),
		"failed":    len(report.Failed),
		"episodes":  report.EpisodesWritten,
	}).Info("Episode catalogs resolved")

	return report, nil
}

func (r *PrerequisiteResolver) resolveShow(ctx context.Context, show models.Show, report *ResolutionReport) (int64, error) {
	ctx, span := otel.Tracer("traktdb/controllers").Start(ctx, "season_catalog")
	defer span.End()
	span.SetAttributes(attribute.Int64("show_id", show.ID))

	seasons, err := r.fetcher.GetSeasonCatalog(ctx, show.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !errors.Is(err, trakt.ErrNotFound) && !errors.Is(err, trakt.ErrLookupFailure) {
			err = fmt.Errorf("%w: %w", trakt.ErrLookupFailure, err)
		}
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	episodes, errs := normalize.Seasons(seasons, show.ID)
	for _, e := range errs {
		r.logger.WithField("show_id", show.ID).WithError(e).Warn("Skipping malformed catalog episode")
	}
	report.Malformed += len(errs)

	n, err := models.InsertOrIgnore(ctx, r.db, episodes)
	if err != nil {
		return 0, fmt.Errorf("failed to write episodes of show %d: %w", show.ID, err)
	}
	r.metrics.AddRows(models.TableEpisode, n)
	span.SetAttributes(attribute.Int("episodes", len(episodes)))

	return n, nil
}

func distinctShows(shows []models.Show) []models.Show {
	seen := make(map[int64]bool, len(shows))
	out := make([]models.Show, 0, len(shows))
	for _, s := range shows {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

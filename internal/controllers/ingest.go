package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/parsers"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BundleSource returns the entries of one backed-up category; nil when absent
type BundleSource interface {
	Read(category string) ([]json.RawMessage, error)
}

// CategoryReport is the outcome of ingesting one category
type CategoryReport struct {
	Category   string
	Missing    bool
	Entries    int
	Skipped    int
	Unresolved int
	Withheld   int
	Written    map[string]int64
	Err        error
}

// IngestReport is the outcome of one ingestion run
type IngestReport struct {
	Categories []*CategoryReport
	Resolution *ResolutionReport
}

// Failed returns the categories that did not complete
func (r *IngestReport) Failed() []*CategoryReport {
	var failed []*CategoryReport
	for _, c := range r.Categories {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// Written returns the total rows inserted per table
func (r *IngestReport) Written() map[string]int64 {
	totals := make(map[string]int64)
	for _, c := range r.Categories {
		for table, n := range c.Written {
			totals[table] += n
		}
	}
	return totals
}

// IngestController loads backed-up categories into the store
type IngestController struct {
	db       *models.Database
	resolver *PrerequisiteResolver
	parser   *parsers.Parser
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

// NewIngestController creates a new ingest controller
func NewIngestController(db *models.Database, resolver *PrerequisiteResolver, parser *parsers.Parser, m *metrics.Metrics, logger *logrus.Logger) *IngestController {
	return &IngestController{
		db:       db,
		resolver: resolver,
		parser:   parser,
		metrics:  m,
		logger:   logger,
	}
}

// IngestAll ingests every category in dependency order. A missing bundle skips
// its category; a failing category is reported without stopping the others.
// Only schema errors and cancellation abort the run.
func (c *IngestController) IngestAll(ctx context.Context, src BundleSource) (*IngestReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.Info("Starting ingestion")
	start := time.Now()

	// Step 1: make sure every table exists
	if err := c.db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	report := &IngestReport{}

	// Step 2: history
	for _, category := range []string{parsers.HistoryEpisodes, parsers.HistoryMovies} {
		report.Categories = append(report.Categories, c.ingestCategory(ctx, src, category))
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	// Step 3: collection, with prerequisite resolution for episodes
	report.Categories = append(report.Categories, c.ingestCollection(ctx, src, report)...)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Step 4: ratings and watchlist
	for _, category := range []string{
		parsers.RatingsEpisodes,
		parsers.RatingsMovies,
		parsers.RatingsShows,
		parsers.WatchlistMovies,
		parsers.WatchlistShows,
	} {
		report.Categories = append(report.Categories, c.ingestCategory(ctx, src, category))
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	for _, failed := range report.Failed() {
		c.logger.WithField("category", failed.Category).WithError(failed.Err).Error("Category failed")
	}

	c.logger.WithFields(logrus.Fields{
		"duration": time.Since(start).Round(time.Millisecond),
		"failed":   len(report.Failed()),
		"written":  report.Written(),
	}).Info("Ingestion completed")

	return report, nil
}

// ingestCategory reads, parses and writes a category that needs no prerequisites
func (c *IngestController) ingestCategory(ctx context.Context, src BundleSource, category string) *CategoryReport {
	return c.track(ctx, category, func(ctx context.Context, rep *CategoryReport) error {
		entries, err := src.Read(category)
		if err != nil {
			return fmt.Errorf("failed to read bundle: %w", err)
		}
		if entries == nil {
			rep.Missing = true
			return nil
		}

		batch, err := c.parser.Parse(category, entries, nil)
		if err != nil {
			return err
		}
		return c.writeBatch(ctx, batch, rep)
	})
}

// ingestCollection handles the three collection categories. Show rows and the
// full episode catalog of every collected show are written before any
// collected episode row; if resolution aborts, collected episodes are not
// written at all.
func (c *IngestController) ingestCollection(ctx context.Context, src BundleSource, report *IngestReport) []*CategoryReport {
	var collectedShows []models.Show

	showsReport := c.track(ctx, parsers.CollectionShows, func(ctx context.Context, rep *CategoryReport) error {
		entries, err := src.Read(parsers.CollectionShows)
		if err != nil {
			return fmt.Errorf("failed to read bundle: %w", err)
		}
		if entries == nil {
			rep.Missing = true
			return nil
		}

		batch, err := c.parser.Parse(parsers.CollectionShows, entries, nil)
		if err != nil {
			return err
		}
		collectedShows = batch.Shows
		return c.writeBatch(ctx, batch, rep)
	})

	episodesReport := c.track(ctx, parsers.CollectionEpisodes, func(ctx context.Context, rep *CategoryReport) error {
		entries, err := src.Read(parsers.CollectionEpisodes)
		if err != nil {
			return fmt.Errorf("failed to read bundle: %w", err)
		}
		if entries == nil {
			rep.Missing = true
			return nil
		}

		shows := append(append([]models.Show(nil), collectedShows...), parsers.EmbeddedShows(entries)...)

		resolution, err := c.resolver.Resolve(ctx, shows)
		report.Resolution = resolution
		if err != nil {
			return fmt.Errorf("collected episodes withheld: %w", err)
		}

		showIDs := make([]int64, 0, len(shows))
		for _, s := range shows {
			showIDs = append(showIDs, s.ID)
		}
		index, err := c.db.EpisodeIndex(ctx, showIDs)
		if err != nil {
			return err
		}

		batch, err := c.parser.Parse(parsers.CollectionEpisodes, entries, parsers.IndexLookup(index))
		if err != nil {
			return err
		}
		return c.writeBatch(ctx, batch, rep)
	})

	moviesReport := c.ingestCategory(ctx, src, parsers.CollectionMovies)

	return []*CategoryReport{showsReport, episodesReport, moviesReport}
}

// track runs one category step with logging, tracing and timing
func (c *IngestController) track(ctx context.Context, category string, fn func(context.Context, *CategoryReport) error) *CategoryReport {
	ctx, span := otel.Tracer("traktdb/controllers").Start(ctx, "ingest_category",
		trace.WithAttributes(attribute.String("category", category)))
	defer span.End()

	rep := &CategoryReport{Category: category, Written: make(map[string]int64)}
	logger := c.logger.WithField("category", category)
	start := time.Now()

	rep.Err = fn(ctx, rep)
	c.metrics.ObserveCategory(category, time.Since(start))

	switch {
	case rep.Err != nil:
		span.RecordError(rep.Err)
		span.SetStatus(codes.Error, "category failed")
	case rep.Missing:
		logger.Info("No bundle for category, skipping")
	default:
		logger.WithFields(logrus.Fields{
			"entries":    rep.Entries,
			"skipped":    rep.Skipped,
			"unresolved": rep.Unresolved,
			"withheld":   rep.Withheld,
			"written":    rep.Written,
		}).Info("Category ingested")
	}
	return rep
}

// writeBatch writes entity rows (shows, episodes, movies) and then the event
// rows whose references resolve
func (c *IngestController) writeBatch(ctx context.Context, batch *parsers.Batch, rep *CategoryReport) error {
	rep.Entries = batch.Entries
	rep.Skipped = len(batch.Skipped)
	rep.Unresolved = batch.Unresolved
	c.metrics.AddSkipped(batch.Category, len(batch.Skipped))

	if err := write(ctx, c, rep, models.TableShow, batch.Shows); err != nil {
		return err
	}
	if err := write(ctx, c, rep, models.TableEpisode, batch.Episodes); err != nil {
		return err
	}
	if err := write(ctx, c, rep, models.TableMovie, batch.Movies); err != nil {
		return err
	}

	if err := writeEvents(ctx, c, rep, models.TableWatchLog, batch.WatchLog); err != nil {
		return err
	}
	if err := writeEvents(ctx, c, rep, models.TableCollected, batch.Collected); err != nil {
		return err
	}
	if err := writeEvents(ctx, c, rep, models.TableRatings, batch.Ratings); err != nil {
		return err
	}
	return writeEvents(ctx, c, rep, models.TableWatchlist, batch.Watchlist)
}

func write[T any](ctx context.Context, c *IngestController, rep *CategoryReport, table string, rows []T) error {
	return storeRows(ctx, c.db, c.metrics, rep.Written, table, rows)
}

// storeRows inserts rows, skipping existing keys, and tallies what was written
func storeRows[T any](ctx context.Context, db *models.Database, m *metrics.Metrics, written map[string]int64, table string, rows []T) error {
	n, err := models.InsertOrIgnore(ctx, db, rows)
	if err != nil {
		return err
	}
	if n > 0 {
		written[table] += n
	}
	m.AddRows(table, n)
	return nil
}

func writeEvents[T models.EventRow](ctx context.Context, c *IngestController, rep *CategoryReport, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	kept, withheld, err := resolvable(ctx, c.db, rows)
	if err != nil {
		return err
	}
	if withheld > 0 {
		rep.Withheld += withheld
		c.metrics.AddWithheld(rep.Category, withheld)
		c.logger.WithFields(logrus.Fields{
			"category": rep.Category,
			"table":    table,
			"withheld": withheld,
		}).Warn("Withholding event rows with unresolved references")
	}
	return write(ctx, c, rep, table, kept)
}

// resolvable filters event rows down to those whose (type, media_id) reference
// exists in the entity table chosen by type
func resolvable[T models.EventRow](ctx context.Context, db *models.Database, rows []T) ([]T, int, error) {
	byTable := make(map[string][]int64)
	for _, row := range rows {
		ref := row.Ref()
		if table, ok := models.EntityTable(ref.Type); ok {
			byTable[table] = append(byTable[table], ref.MediaID)
		}
	}

	existing := make(map[string]map[int64]struct{}, len(byTable))
	for table, ids := range byTable {
		found, err := db.ExistingIDs(ctx, table, ids)
		if err != nil {
			return nil, 0, err
		}
		existing[table] = found
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		ref := row.Ref()
		table, ok := models.EntityTable(ref.Type)
		if !ok {
			continue
		}
		if _, ok := existing[table][ref.MediaID]; ok {
			out = append(out, row)
		}
	}
	return out, len(rows) - len(out), nil
}

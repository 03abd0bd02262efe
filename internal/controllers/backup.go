package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/traktdb/internal/bundle"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/sirupsen/logrus"
)

// BackupTarget is one user category fetched by a backup run
type BackupTarget struct {
	Item     string
	Endpoint string
}

// BackupTargets lists every category a backup run fetches, in request order
var BackupTargets = []BackupTarget{
	{"watched", "movies"},
	{"watched", "episodes"},
	{"watched", "shows"},
	{"ratings", "movies"},
	{"ratings", "episodes"},
	{"ratings", "shows"},
	{"ratings", "seasons"},
	{"history", "movies"},
	{"history", "episodes"},
	{"watchlist", "movies"},
	{"watchlist", "shows"},
	{"collection", "movies"},
	{"collection", "episodes"},
	{"collection", "shows"},
	{"stats", ""},
}

// UserFetcher downloads a user's raw categories
type UserFetcher interface {
	CheckUser(ctx context.Context, username string) error
	FetchUserCategory(ctx context.Context, username, item, endpoint string) ([]byte, error)
}

// CategoryWriter persists one fetched category
type CategoryWriter interface {
	Write(item, endpoint string, body []byte) (bool, error)
}

// BackupReport lists what one backup run stored
type BackupReport struct {
	Written []string
	Empty   []string
	Failed  map[string]error
}

// BackupController fetches a user's activity into a backup directory
type BackupController struct {
	fetcher UserFetcher
	pacer   Waiter
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewBackupController creates a new backup controller
func NewBackupController(fetcher UserFetcher, pacer Waiter, m *metrics.Metrics, logger *logrus.Logger) *BackupController {
	return &BackupController{
		fetcher: fetcher,
		pacer:   pacer,
		metrics: m,
		logger:  logger,
	}
}

// Backup checks that the user exists, then fetches every target and writes
// the non-empty ones. A category that fails to download is logged and
// skipped; an unknown user, a write error or cancellation stops the run.
func (c *BackupController) Backup(ctx context.Context, username string, w CategoryWriter) (*BackupReport, error) {
	logger := c.logger.WithField("user", username)
	logger.Info("Starting backup")
	start := time.Now()

	if err := c.fetcher.CheckUser(ctx, username); err != nil {
		return nil, err
	}

	report := &BackupReport{Failed: make(map[string]error)}

	for _, target := range BackupTargets {
		if err := c.pacer.Wait(ctx); err != nil {
			return report, err
		}

		name := bundle.FileName(target.Item, target.Endpoint)
		targetLogger := logger.WithField("file", name)

		body, err := c.fetcher.FetchUserCategory(ctx, username, target.Item, target.Endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			if errors.Is(err, trakt.ErrUserNotFound) {
				return report, err
			}
			report.Failed[name] = err
			c.metrics.Lookup("backup", "failed")
			targetLogger.WithError(err).Error("Failed to fetch category, skipping")
			continue
		}
		c.metrics.Lookup("backup", "ok")

		written, err := w.Write(target.Item, target.Endpoint, body)
		if err != nil {
			return report, fmt.Errorf("failed to store %s: %w", name, err)
		}
		if !written {
			report.Empty = append(report.Empty, name)
			targetLogger.Debug("Category is empty, nothing written")
			continue
		}
		report.Written = append(report.Written, name)
		targetLogger.WithField("bytes", len(body)).Info("Saved category")
	}

	logger.WithFields(logrus.Fields{
		"written":  len(report.Written),
		"empty":    len(report.Empty),
		"failed":   len(report.Failed),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Backup completed")

	return report, nil
}

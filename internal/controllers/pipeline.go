package controllers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/amaumene/traktdb/internal/bundle"
	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RunOptions tunes one backup and ingestion run
type RunOptions struct {
	Resume   bool // ingest the newest existing backup instead of fetching a new one
	Keep     bool // keep the backup files after a successful ingestion
	NoDB     bool // back up only
	Extended bool // backfill extended metadata after ingestion
}

// RunReport collects the outcome of every step of a run
type RunReport struct {
	BackupDir string
	Backup    *BackupReport
	Ingest    *IngestReport
	Extended  *BackfillReport
}

// Pipeline chains backup, ingestion and extended backfill for one user
type Pipeline struct {
	cfg      *config.Config
	backup   *BackupController
	ingest   *IngestController
	extended *ExtendedController
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPipeline creates a new pipeline
func NewPipeline(cfg *config.Config, backup *BackupController, ingest *IngestController, extended *ExtendedController, m *metrics.Metrics, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		backup:   backup,
		ingest:   ingest,
		extended: extended,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Run backs up the user's activity and loads it into the store. The backup
// directory is removed afterwards unless Keep is set or a category failed.
func (p *Pipeline) Run(ctx context.Context, username string, opts RunOptions) (*RunReport, error) {
	logger := p.logger.WithField("user", username)
	report := &RunReport{}

	// Step 1: locate or fetch the backup
	if opts.Resume {
		dir, err := bundle.Latest(p.cfg.UserDir(username))
		if err != nil {
			return report, err
		}
		report.BackupDir = dir
		logger.WithField("dir", dir).Info("Resuming from existing backup")
	} else {
		report.BackupDir = p.cfg.NewBackupPath(username, p.now())
		writer, err := bundle.NewWriter(report.BackupDir)
		if err != nil {
			return report, err
		}
		backup, err := p.backup.Backup(ctx, username, writer)
		report.Backup = backup
		if err != nil {
			return report, fmt.Errorf("backup failed: %w", err)
		}
	}

	if opts.NoDB {
		logger.WithField("dir", report.BackupDir).Info("Skipping database, backup kept")
		return report, nil
	}

	// Step 2: ingest
	ingest, err := p.ingest.IngestAll(ctx, bundle.NewReader(report.BackupDir))
	report.Ingest = ingest
	if err != nil {
		return report, fmt.Errorf("ingestion failed: %w", err)
	}

	// Step 3: optional extended metadata
	if opts.Extended {
		extended, err := p.extended.Backfill(ctx)
		report.Extended = extended
		if err != nil {
			return report, fmt.Errorf("extended backfill failed: %w", err)
		}
	}

	if p.cfg.MetricsFile != "" {
		if err := p.metrics.WriteTextfile(p.cfg.MetricsFile); err != nil {
			logger.WithError(err).Warn("Failed to write metrics file")
		}
	}

	// Step 4: clean up
	switch {
	case opts.Keep:
		logger.WithField("dir", report.BackupDir).Info("Backup kept")
	case len(ingest.Failed()) > 0:
		logger.WithField("dir", report.BackupDir).Warn("Some categories failed, backup kept for a later --resume")
	default:
		if err := os.RemoveAll(report.BackupDir); err != nil {
			logger.WithError(err).Warn("Failed to remove backup directory")
		} else {
			logger.WithField("dir", report.BackupDir).Debug("Backup removed")
		}
	}

	return report, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/amaumene/traktdb/internal/api"
	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/controllers"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/scheduler"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/sirupsen/logrus"
)

// username is the profile a command works on
type username string

// application holds the wired components for one user
type application struct {
	DB        *models.Database
	Client    *trakt.Client
	Metrics   *metrics.Metrics
	Backup    *controllers.BackupController
	Ingest    *controllers.IngestController
	Extended  *controllers.ExtendedController
	Pipeline  *controllers.Pipeline
	Server    *api.Server
	Scheduler *scheduler.Scheduler
}

// backupApplication holds the components a backup needs; it never opens the database
type backupApplication struct {
	Metrics *metrics.Metrics
	Backup  *controllers.BackupController
}

// provideDatabase opens the user's database, creating its directory if needed
func provideDatabase(cfg *config.Config, user username, logger *logrus.Logger) (*models.Database, func(), error) {
	if err := os.MkdirAll(cfg.UserDir(string(user)), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create user directory: %w", err)
	}

	db, err := models.NewDatabase(cfg.DatabaseFile(string(user)), cfg.BatchSize, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database")
		}
	}
	return db, cleanup, nil
}

// providePacer builds the single politeness pacer shared by every upstream caller
func providePacer(cfg *config.Config) *utils.Pacer {
	return utils.NewPacer(cfg.RequestDelay)
}

//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/amaumene/traktdb/internal/api"
	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/controllers"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/parsers"
	"github.com/amaumene/traktdb/internal/scheduler"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/google/wire"
	"github.com/sirupsen/logrus"
)

// initializeApp wires every component for one user
func initializeApp(cfg *config.Config, logger *logrus.Logger, user username) (*application, func(), error) {
	panic(wire.Build(
		provideDatabase,
		providePacer,
		trakt.NewClient,
		metrics.New,
		parsers.NewParser,
		controllers.ProviderSet,
		api.NewServer,
		scheduler.NewScheduler,
		wire.Bind(new(controllers.CatalogFetcher), new(*trakt.Client)),
		wire.Bind(new(controllers.ExtendedFetcher), new(*trakt.Client)),
		wire.Bind(new(controllers.UserFetcher), new(*trakt.Client)),
		wire.Bind(new(controllers.Waiter), new(*utils.Pacer)),
		wire.Bind(new(scheduler.Runner), new(*controllers.Pipeline)),
		wire.Struct(new(application), "*"),
	))
}

// initializeBackup wires the backup path only
func initializeBackup(cfg *config.Config, logger *logrus.Logger) (*backupApplication, error) {
	panic(wire.Build(
		providePacer,
		trakt.NewClient,
		metrics.New,
		controllers.NewBackupController,
		wire.Bind(new(controllers.UserFetcher), new(*trakt.Client)),
		wire.Bind(new(controllers.Waiter), new(*utils.Pacer)),
		wire.Struct(new(backupApplication), "*"),
	))
}

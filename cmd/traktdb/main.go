package main

import (
	"context"
	"fmt"
	"os"

	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cliState is the state shared by every command once the root has loaded it
type cliState struct {
	cfg         *config.Config
	logger      *logrus.Logger
	stopTracing func(context.Context) error
}

var rt cliState

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	defer func() {
		if rt.stopTracing != nil {
			_ = rt.stopTracing(context.Background())
		}
	}()
	return rootCmd().Execute()
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "traktdb",
		Short:         "Back up Trakt watch activity into a local SQLite database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			rt.cfg = cfg
			rt.logger = utils.NewLogger(cfg.LogLevel)
			rt.stopTracing = utils.InitTracing(rt.logger)
			rt.logger.WithField("backup_dir", cfg.BackupDir).Debug("Configuration loaded")
			return nil
		},
	}

	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(runCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(extendCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(schemaCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(daemonCmd())
	root.AddCommand(authCmd())

	return root
}

// userArg returns the username from the arguments, falling back to TRAKT_USERNAME
func userArg(args []string) (username, error) {
	if len(args) > 0 && args[0] != "" {
		return username(args[0]), nil
	}
	if rt.cfg.TraktUsername != "" {
		return username(rt.cfg.TraktUsername), nil
	}
	return "", fmt.Errorf("a username is required (argument or TRAKT_USERNAME)")
}

// withApp wires the components for the user named in args and runs fn
func withApp(args []string, fn func(user username, app *application) error) error {
	user, err := userArg(args)
	if err != nil {
		return err
	}

	app, cleanup, err := initializeApp(rt.cfg, rt.logger, user)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(user, app)
}

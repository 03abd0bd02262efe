package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/amaumene/traktdb/internal/bundle"
	"github.com/amaumene/traktdb/internal/controllers"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	var opts controllers.RunOptions

	cmd := &cobra.Command{
		Use:   "run [user]",
		Short: "Back up a user's activity and load it into the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.NoDB {
				if opts.Resume {
					return fmt.Errorf("--resume and --nodb cannot be combined")
				}
				return backupOnly(args)
			}
			if !opts.Resume {
				if err := rt.cfg.RequireTrakt(); err != nil {
					return err
				}
			}
			return withApp(args, func(user username, app *application) error {
				ctx, cancel := signalContext()
				defer cancel()

				report, err := app.Pipeline.Run(ctx, string(user), opts)
				if report != nil {
					printRunReport(report)
				}
				if err != nil {
					return err
				}
				if report.Ingest != nil && len(report.Ingest.Failed()) > 0 {
					return fmt.Errorf("%d categories failed, backup kept in %s", len(report.Ingest.Failed()), report.BackupDir)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "ingest the newest existing backup instead of fetching a new one")
	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "keep the backup files after ingestion")
	cmd.Flags().BoolVar(&opts.NoDB, "nodb", false, "back up only, do not touch the database")
	cmd.Flags().BoolVar(&opts.Extended, "extended", false, "fetch extended metadata after ingestion")
	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [user]",
		Short: "Download a user's activity into a new backup directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return backupOnly(args)
		},
	}
}

// backupOnly downloads a new backup without opening the user's database
func backupOnly(args []string) error {
	if err := rt.cfg.RequireTrakt(); err != nil {
		return err
	}
	user, err := userArg(args)
	if err != nil {
		return err
	}
	app, err := initializeBackup(rt.cfg, rt.logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	_, err = runBackup(ctx, app, user, time.Now())
	return err
}

// runBackup writes a timestamped backup of user and returns its directory
func runBackup(ctx context.Context, app *backupApplication, user username, now time.Time) (string, error) {
	dir := rt.cfg.NewBackupPath(string(user), now)
	writer, err := bundle.NewWriter(dir)
	if err != nil {
		return dir, err
	}

	report, err := app.Backup.Backup(ctx, string(user), writer)
	if err != nil {
		return dir, fmt.Errorf("backup failed: %w", err)
	}
	printBackupReport(dir, report)
	return dir, nil
}

func ingestCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "ingest [user]",
		Short: "Load an existing backup into the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(args, func(user username, app *application) error {
				ctx, cancel := signalContext()
				defer cancel()

				dir := from
				if dir == "" {
					latest, err := bundle.Latest(rt.cfg.UserDir(string(user)))
					if err != nil {
						return err
					}
					dir = latest
				}

				report, err := app.Ingest.IngestAll(ctx, bundle.NewReader(dir))
				if report != nil {
					printIngestReport(report)
				}
				if err != nil {
					return fmt.Errorf("ingestion failed: %w", err)
				}
				if failed := report.Failed(); len(failed) > 0 {
					return fmt.Errorf("%d categories failed", len(failed))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "backup directory to ingest (default: newest backup of the user)")
	return cmd
}

func extendCmd() *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "extend [user]",
		Short: "Fetch extended metadata for stored shows, movies and episodes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.cfg.RequireTrakt(); err != nil {
				return err
			}
			return withApp(args, func(user username, app *application) error {
				ctx, cancel := signalContext()
				defer cancel()

				mediaTypes := make([]models.MediaType, len(kinds))
				for i, kind := range kinds {
					mediaTypes[i] = models.MediaType(kind)
				}

				report, err := app.Extended.Backfill(ctx, mediaTypes...)
				if report != nil {
					fmt.Printf("fetched %d, not found %d, failed %d\n", report.Fetched, report.NotFound, report.Failed)
					printCounts(report.Written)
				}
				return err
			})
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "limit to show, movie or episode (default: all)")
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [user]",
		Short: "Check that the database has every table and no dangling references",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(args, func(user username, app *application) error {
				ctx := cmd.Context()

				if err := app.DB.RequireSchema(ctx); err != nil {
					return err
				}
				violations, err := app.DB.ValidateReferences(ctx)
				if err != nil {
					return err
				}
				for _, v := range violations {
					fmt.Println(v.String())
				}
				if len(violations) > 0 {
					return fmt.Errorf("%d reference violations", len(violations))
				}
				fmt.Println("ok")
				return nil
			})
		},
	}
}

func schemaCmd() *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "schema [user]",
		Short: "Print the table declarations, or create them with --create",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if create {
				return withApp(args, func(user username, app *application) error {
					return app.DB.EnsureSchema(cmd.Context())
				})
			}

			db, err := models.NewDatabase(":memory:", rt.cfg.BatchSize, rt.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			specs, err := db.Describe()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(specs)
		},
	}

	cmd.Flags().BoolVar(&create, "create", false, "create missing tables in the user's database")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [user]",
		Short: "Serve the user's database over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(args, func(user username, app *application) error {
				ctx, cancel := signalContext()
				defer cancel()

				if err := app.DB.EnsureSchema(ctx); err != nil {
					return err
				}
				return app.Server.Start(ctx)
			})
		},
	}
}

func daemonCmd() *cobra.Command {
	var opts controllers.RunOptions

	cmd := &cobra.Command{
		Use:   "daemon [user]",
		Short: "Run the pipeline on a schedule and serve the database over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.cfg.RequireTrakt(); err != nil {
				return err
			}
			return withApp(args, func(user username, app *application) error {
				ctx, cancel := signalContext()
				defer cancel()

				if err := app.DB.EnsureSchema(ctx); err != nil {
					return err
				}

				if err := app.Scheduler.Start(string(user), opts); err != nil {
					return fmt.Errorf("failed to start scheduler: %w", err)
				}
				defer app.Scheduler.Stop()

				rt.logger.WithField("user", user).Info("traktdb is running")
				return app.Server.Start(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "keep the backup files after each run")
	cmd.Flags().BoolVar(&opts.Extended, "extended", false, "fetch extended metadata after each run")
	return cmd
}

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize traktdb with a Trakt account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.cfg.RequireTrakt(); err != nil {
				return err
			}
			app, cleanup, err := initializeApp(rt.cfg, rt.logger, username(rt.cfg.TraktUsername))
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := app.Client.GetToken(); err == nil {
				rt.logger.Info("Already authenticated, requesting a new token")
			}

			ctx, cancel := signalContext()
			defer cancel()
			return app.Client.Authenticate(ctx, os.Stdout)
		},
	}
}

func printRunReport(report *controllers.RunReport) {
	if report.Backup != nil {
		printBackupReport(report.BackupDir, report.Backup)
	}
	if report.Ingest != nil {
		printIngestReport(report.Ingest)
	}
	if report.Extended != nil {
		fmt.Printf("extended: fetched %d, not found %d, failed %d\n",
			report.Extended.Fetched, report.Extended.NotFound, report.Extended.Failed)
		printCounts(report.Extended.Written)
	}
}

func printBackupReport(dir string, report *controllers.BackupReport) {
	if report == nil {
		return
	}
	fmt.Printf("backup %s: %d written, %d empty, %d failed\n", dir, len(report.Written), len(report.Empty), len(report.Failed))
	for name, err := range report.Failed {
		fmt.Printf("  %s: %v\n", name, err)
	}
}

func printIngestReport(report *controllers.IngestReport) {
	for _, c := range report.Categories {
		switch {
		case c.Err != nil:
			fmt.Printf("%-22s FAILED: %v\n", c.Category, c.Err)
		case c.Missing:
			fmt.Printf("%-22s no bundle\n", c.Category)
		default:
			fmt.Printf("%-22s %d entries, %d skipped, %d unresolved, %d withheld\n",
				c.Category, c.Entries, c.Skipped, c.Unresolved, c.Withheld)
		}
	}
	printCounts(report.Written())
}

func printCounts(counts map[string]int64) {
	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Printf("  %-22s +%d\n", table, counts[table])
	}
}

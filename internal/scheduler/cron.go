package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/controllers"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner executes one backup and ingestion run
type Runner interface {
	Run(ctx context.Context, username string, opts controllers.RunOptions) (*controllers.RunReport, error)
}

// Scheduler runs the pipeline on a cron schedule. Runs never overlap: a tick
// that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
	logger   *logrus.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	username string
	opts     controllers.RunOptions
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.Config, runner Runner, logger *logrus.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		runner:   runner,
		schedule: cfg.Schedule,
		logger:   logger,
	}
}

// Start registers the run job and triggers an immediate first run
func (s *Scheduler) Start(username string, opts controllers.RunOptions) error {
	s.logger.WithFields(logrus.Fields{
		"user":     username,
		"schedule": s.schedule,
	}).Info("Starting scheduler")

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.username = username
	s.opts = opts
	s.mu.Unlock()

	id, err := s.cron.AddFunc(s.schedule, s.runJob)
	if err != nil {
		return fmt.Errorf("failed to add run job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run once immediately through the job wrapper so it counts as running
	entry := s.cron.Entry(id)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		entry.WrappedJob.Run()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// runJob executes one scheduled run
func (s *Scheduler) runJob() {
	s.mu.Lock()
	ctx, username, opts := s.ctx, s.username, s.opts
	s.mu.Unlock()

	logger := s.logger.WithField("user", username)
	logger.Info("Running scheduled backup")

	report, err := s.runner.Run(ctx, username, opts)
	if err != nil {
		logger.WithError(err).Error("Scheduled run failed")
		return
	}

	fields := logrus.Fields{"dir": report.BackupDir}
	if report.Ingest != nil {
		fields["failed_categories"] = len(report.Ingest.Failed())
		fields["written"] = report.Ingest.Written()
	}
	logger.WithFields(fields).Info("Scheduled run completed")
}

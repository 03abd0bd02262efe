package controllers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/parsers"
	"github.com/amaumene/traktdb/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, user *fakeUser) (*Pipeline, *models.Database, *config.Config) {
	t.Helper()
	cfg := testConfig()
	cfg.BackupDir = t.TempDir()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "traktdb.prom")

	db := newTestDB(t)
	m := metrics.New()
	logger := utils.NewDiscardLogger()
	pacer := &countingPacer{}

	resolver := NewPrerequisiteResolver(cfg, db, newFakeCatalog(), pacer, m, logger)
	ingest := NewIngestController(db, resolver, parsers.NewParser(logger), m, logger)
	extended := NewExtendedController(db, &fakeExtended{}, pacer, m, logger)
	backup := NewBackupController(user, pacer, m, logger)

	p := NewPipeline(cfg, backup, ingest, extended, m, logger)
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p, db, cfg
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()
	user := &fakeUser{bodies: map[string]string{"history_movies.json": historyMoviesDoc}}
	p, db, cfg := newTestPipeline(t, user)

	report, err := p.Run(ctx, "me", RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.BackupDir, "me", "20240102030405"), report.BackupDir)
	assert.Equal(t, []string{"history_movies.json"}, report.Backup.Written)

	n, err := db.CountWhere(ctx, models.TableWatchLog, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = os.Stat(report.BackupDir)
	assert.True(t, os.IsNotExist(err), "backup is removed after a clean run")

	_, err = os.Stat(cfg.MetricsFile)
	assert.NoError(t, err)
}

func TestPipelineKeepAndResume(t *testing.T) {
	ctx := context.Background()
	user := &fakeUser{bodies: map[string]string{"history_movies.json": historyMoviesDoc}}
	p, _, _ := newTestPipeline(t, user)

	first, err := p.Run(ctx, "me", RunOptions{Keep: true, NoDB: true})
	require.NoError(t, err)
	assert.Nil(t, first.Ingest)
	_, err = os.Stat(first.BackupDir)
	require.NoError(t, err)

	user.fetched = nil
	second, err := p.Run(ctx, "me", RunOptions{Resume: true, Keep: true})
	require.NoError(t, err)

	assert.Empty(t, user.fetched, "resume does not fetch")
	assert.Equal(t, first.BackupDir, second.BackupDir)
	assert.Equal(t, int64(1), second.Ingest.Written()[models.TableWatchLog])
}

func TestPipelineResumeWithoutBackup(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeUser{})
	_, err := p.Run(context.Background(), "me", RunOptions{Resume: true})
	assert.Error(t, err)
}

package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultBatchSize is the number of rows per INSERT statement
const DefaultBatchSize = 100

// idChunkSize bounds the number of bound parameters in IN queries
const idChunkSize = 500

// Database wraps the gorm connection to the SQLite store
type Database struct {
	db        *gorm.DB
	batchSize int
	logger    *logrus.Logger
}

// NewDatabase opens (or creates) the SQLite database at path.
// Use ":memory:" for a private in-memory store.
func NewDatabase(path string, batchSize int, logger *logrus.Logger) (*Database, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 &gormLogger{logger: logger, slowThreshold: 500 * time.Millisecond},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// Single writer; also keeps an in-memory database alive across calls
	sqlDB.SetMaxOpenConns(1)

	return &Database{db: gdb, batchSize: batchSize, logger: logger}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// TableExists reports whether a table is present
func (d *Database) TableExists(ctx context.Context, name string) bool {
	return d.db.WithContext(ctx).Migrator().HasTable(name)
}

// InsertOrIgnore writes rows in batches, silently skipping rows whose
// primary key already exists. It returns the number of rows inserted.
func InsertOrIgnore[T any](ctx context.Context, d *Database, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	result := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, d.batchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", tableOf(rows[0]), result.Error)
	}

	d.logger.WithFields(logrus.Fields{
		"table":    tableOf(rows[0]),
		"rows":     len(rows),
		"inserted": result.RowsAffected,
	}).Debug("Insert-or-ignore complete")

	return result.RowsAffected, nil
}

// EachRow iterates every row of T's table in primary key order
func EachRow[T any](ctx context.Context, d *Database, fn func(T) error) error {
	var batch []T
	var fnErr error
	result := d.db.WithContext(ctx).FindInBatches(&batch, d.batchSize, func(tx *gorm.DB, _ int) error {
		for _, row := range batch {
			if err := fn(row); err != nil {
				fnErr = err
				return err
			}
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if result.Error != nil {
		return fmt.Errorf("failed to iterate rows: %w", result.Error)
	}
	return nil
}

// CountWhere counts rows of a table matching query. A nil query counts every row.
func (d *Database) CountWhere(ctx context.Context, table string, query interface{}, args ...interface{}) (int64, error) {
	tx := d.db.WithContext(ctx).Table(table)
	if query != nil {
		tx = tx.Where(query, args...)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// ExistingIDs returns the subset of ids present in table
func (d *Database) ExistingIDs(ctx context.Context, table string, ids []int64) (map[int64]struct{}, error) {
	found := make(map[int64]struct{}, len(ids))
	for start := 0; start < len(ids); start += idChunkSize {
		end := start + idChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		var present []int64
		err := d.db.WithContext(ctx).
			Table(table).
			Where("id IN ?", ids[start:end]).
			Pluck("id", &present).Error
		if err != nil {
			return nil, fmt.Errorf("failed to look up ids in %s: %w", table, err)
		}
		for _, id := range present {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

// EpisodeKey locates an episode within its show
type EpisodeKey struct {
	ShowID int64
	Season int
	Number int
}

// EpisodeIndex maps (show, season, number) to episode id for the given shows
func (d *Database) EpisodeIndex(ctx context.Context, showIDs []int64) (map[EpisodeKey]int64, error) {
	index := make(map[EpisodeKey]int64)
	for start := 0; start < len(showIDs); start += idChunkSize {
		end := start + idChunkSize
		if end > len(showIDs) {
			end = len(showIDs)
		}

		var episodes []Episode
		err := d.db.WithContext(ctx).
			Select("id", "show_id", "season", "number").
			Where("show_id IN ?", showIDs[start:end]).
			Find(&episodes).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load episode index: %w", err)
		}
		for _, ep := range episodes {
			index[EpisodeKey{ShowID: ep.ShowID, Season: ep.Season, Number: ep.Number}] = ep.ID
		}
	}
	return index, nil
}

type tabler interface {
	TableName() string
}

func tableOf(row interface{}) string {
	if t, ok := row.(tabler); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", row)
}

// gormLogger routes gorm's logging through logrus
type gormLogger struct {
	logger        *logrus.Logger
	slowThreshold time.Duration
}

func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	l.logger.Infof(msg, args...)
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	l.logger.Warnf(msg, args...)
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	l.logger.Errorf(msg, args...)
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.WithError(err).WithFields(logrus.Fields{
			"sql":     sql,
			"rows":    rows,
			"elapsed": elapsed,
		}).Error("Query failed")
	case elapsed > l.slowThreshold:
		sql, rows := fc()
		l.logger.WithFields(logrus.Fields{
			"sql":     sql,
			"rows":    rows,
			"elapsed": elapsed,
		}).Warn("Slow query")
	case l.logger.IsLevelEnabled(logrus.TraceLevel):
		sql, rows := fc()
		l.logger.WithFields(logrus.Fields{
			"sql":     sql,
			"rows":    rows,
			"elapsed": elapsed,
		}).Trace("Query")
	}
}

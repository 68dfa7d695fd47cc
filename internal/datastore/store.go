package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/correlator"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

// DefaultRecentLimit caps Recent when the caller passes no limit.
const DefaultRecentLimit = 100

// Store is the correlation result archive. It implements correlator.Sink.
type Store struct {
	db       *gorm.DB
	kind     string
	log      logger.Logger
	recorder metrics.Recorder
}

var _ correlator.Sink = (*Store)(nil)

// Open connects to the database selected by settings and migrates the
// schema.
func Open(settings *conf.DatastoreSettings, recorder metrics.Recorder) (*Store, error) {
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	log := GetLogger()
	gormLog := NewGormLogger(log, DefaultSlowQueryThreshold, gormlogger.Warn, recorder)

	var (
		dialector gorm.Dialector
		target    string
	)
	switch settings.Type {
	case "", conf.DatastoreSQLite:
		path := settings.SQLite.Path
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, dbError(err, "create_directory").Context("path", dir).Build()
			}
		}
		dialector = sqlite.Open(path)
		target = path
	case conf.DatastoreMySQL:
		m := settings.MySQL
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			m.Username, m.Password, m.Host, m.Port, m.Database)
		dialector = mysql.Open(dsn)
		target = fmt.Sprintf("%s@%s:%d/%s", m.Username, m.Host, m.Port, m.Database)
	default:
		return nil, errors.Newf("unsupported datastore type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("type", settings.Type).
			Build()
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, dbError(err, "open").Context("target", target).Build()
	}

	s := &Store{db: db, kind: settings.Type, log: log, recorder: recorder}
	if s.kind == "" {
		s.kind = conf.DatastoreSQLite
	}
	if err := db.AutoMigrate(&ResultRecord{}); err != nil {
		_ = s.Close()
		return nil, dbError(err, "auto_migrate").Context("target", target).Build()
	}

	log.Info("datastore opened", logger.String("type", s.kind), logger.String("target", target))
	return s, nil
}

// Name implements correlator.Sink.
func (s *Store) Name() string { return "datastore" }

// Consume implements correlator.Sink.
func (s *Store) Consume(ctx context.Context, r correlator.Result) error {
	return s.Save(ctx, r)
}

// Save archives one result.
func (s *Store) Save(ctx context.Context, r correlator.Result) error {
	start := time.Now()
	rec := recordFromResult(&r)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		s.recorder.RecordOperation("save", "error")
		return dbError(err, "save").
			Context("channel", r.Channel).
			Context("beam", r.Beam).
			Build()
	}
	s.recorder.RecordOperation("save", "success")
	s.recorder.RecordDuration("save", time.Since(start).Seconds())
	return nil
}

// Recent returns up to limit results, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]correlator.Result, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var recs []ResultRecord
	err := s.db.WithContext(ctx).
		Order("observed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, dbError(err, "recent").Context("limit", limit).Build()
	}
	out := make([]correlator.Result, len(recs))
	for i := range recs {
		out[i] = recs[i].result()
	}
	return out, nil
}

// Prune deletes results older than olderThan and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.db.WithContext(ctx).Where("observed_at < ?", cutoff).Delete(&ResultRecord{})
	if res.Error != nil {
		return 0, dbError(res.Error, "prune").Context("cutoff", cutoff).Build()
	}
	if res.RowsAffected > 0 {
		s.log.Info("pruned old results", logger.Int64("deleted", res.RowsAffected), logger.Time("cutoff", cutoff))
	}
	return res.RowsAffected, nil
}

// RunRetention prunes results older than retention every interval until
// ctx ends. A zero retention disables pruning.
func (s *Store) RunRetention(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = min(retention, time.Hour)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx, retention); err != nil && ctx.Err() == nil {
				s.log.Warn("retention prune failed", logger.Error(err))
			}
		}
	}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close").Build()
	}
	return sqlDB.Close()
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}

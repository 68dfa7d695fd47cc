package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

// DefaultSlowQueryThreshold is the duration after which a query is logged
// as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// GormLogger routes gorm logging into the module logger and records query
// outcomes.
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel

	log      logger.Logger
	recorder metrics.Recorder
}

// NewGormLogger creates a gorm logger writing to log.
func NewGormLogger(log logger.Logger, slowThreshold time.Duration, level gormlogger.LogLevel, recorder metrics.Recorder) *GormLogger {
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	return &GormLogger{
		SlowThreshold: slowThreshold,
		LogLevel:      level,
		log:           log,
		recorder:      recorder,
	}
}

// LogMode implements gormlogger.Interface.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info implements gormlogger.Interface.
func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface.
func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface.
func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		l.log.Error("gorm error", logger.String("msg", fmt.Sprintf(msg, data...)))
		l.recorder.RecordError("gorm", "internal")
	}
}

// Trace implements gormlogger.Interface.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	l.recorder.RecordDuration("query", elapsed.Seconds())

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= gormlogger.Error:
		l.log.Error("database query failed",
			logger.Error(err),
			logger.String("sql", sql),
			logger.Duration("duration", elapsed),
			logger.Int64("rows_affected", rows))
		l.recorder.RecordOperation("query", "error")
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		l.log.Warn("slow query detected",
			logger.String("sql", sql),
			logger.Duration("duration", elapsed),
			logger.Duration("threshold", l.SlowThreshold),
			logger.Int64("rows_affected", rows))
		l.recorder.RecordOperation("query", "slow")
	default:
		if l.LogLevel >= gormlogger.Info {
			l.log.Debug("query executed",
				logger.String("sql", sql),
				logger.Duration("duration", elapsed),
				logger.Int64("rows_affected", rows))
		}
		l.recorder.RecordOperation("query", "success")
	}
}

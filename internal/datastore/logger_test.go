package datastore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"

	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

func TestGormLoggerTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec := metrics.NewTestRecorder()
	l := NewGormLogger(logger.NewSlogLogger(&buf, logger.LogLevelDebug, nil), 50*time.Millisecond, gormlogger.Warn, rec)
	query := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), query, nil)
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	l.Trace(context.Background(), time.Now(), query, errors.NewStd("locked"))

	assert.Equal(t, 1, rec.OperationCount("query", "success"))
	assert.Equal(t, 1, rec.OperationCount("query", "slow"))
	assert.Equal(t, 1, rec.OperationCount("query", "error"))
	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "database query failed")
	assert.NotContains(t, out, "query executed", "debug query lines need gorm Info level")

	silent := l.LogMode(gormlogger.Silent).(*GormLogger)
	silent.Trace(context.Background(), time.Now(), query, errors.NewStd("ignored"))
	assert.Equal(t, 1, rec.OperationCount("query", "error"))
}

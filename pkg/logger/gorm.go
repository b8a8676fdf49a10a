package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm statements through the global slog logger.
// Record-not-found is logged at debug level, not as an SQL error.
type GormLogger struct {
	LogLevel      gormlogger.LogLevel
	SlowThreshold time.Duration
}

func NewGormLogger(logLevel gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{LogLevel: logLevel, SlowThreshold: slowThreshold}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Info, slog.LevelInfo, fmt.Sprintf(msg, data...))
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Warn, slog.LevelWarn, fmt.Sprintf(msg, data...))
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Error, slog.LevelError, fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement: failures as errors, statements slower
// than SlowThreshold as warnings, everything else at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		l.emit(ctx, gormlogger.Info, slog.LevelDebug, "SQL no rows", attrs...)
	case err != nil:
		l.emit(ctx, gormlogger.Error, slog.LevelError, "SQL error", append(attrs, slog.String("error", err.Error()))...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		l.emit(ctx, gormlogger.Warn, slog.LevelWarn, "Slow SQL", append(attrs, slog.Duration("threshold", l.SlowThreshold))...)
	default:
		l.emit(ctx, gormlogger.Info, slog.LevelDebug, "SQL", attrs...)
	}
}

// emit writes msg when the gorm level allows min
func (l *GormLogger) emit(ctx context.Context, min gormlogger.LogLevel, level slog.Level, msg string, attrs ...any) {
	if l.LogLevel < min {
		return
	}
	Log.Log(ctx, level, msg, attrs...)
}

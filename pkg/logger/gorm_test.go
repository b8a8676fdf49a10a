package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Log
	Log = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { Log = prev })
	return &buf
}

func statement() (string, int64) {
	return "SELECT * FROM amortization_plans WHERE case_id = 3", 0
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		want    string
		absent  string
	}{
		{name: "record not found is not an error", level: gormlogger.Info, err: gorm.ErrRecordNotFound, want: `"msg":"SQL no rows"`, absent: `"level":"ERROR"`},
		{name: "record not found hidden at error level", level: gormlogger.Error, err: gorm.ErrRecordNotFound, absent: "SQL"},
		{name: "failure", level: gormlogger.Error, err: errors.New("connection reset"), want: `"msg":"SQL error"`},
		{name: "slow statement", level: gormlogger.Warn, elapsed: time.Second, want: `"msg":"Slow SQL"`},
		{name: "silent", level: gormlogger.Silent, err: errors.New("connection reset"), absent: "SQL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			l := NewGormLogger(tt.level, 200*time.Millisecond)

			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), statement, tt.err)

			if tt.want != "" {
				assert.Contains(t, buf.String(), tt.want)
			}
			if tt.absent != "" {
				assert.NotContains(t, buf.String(), tt.absent)
			}
		})
	}
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	l := NewGormLogger(gormlogger.Warn, time.Second)
	quiet := l.LogMode(gormlogger.Silent)

	assert.Equal(t, gormlogger.Warn, l.LogLevel)
	assert.Equal(t, gormlogger.Silent, quiet.(*GormLogger).LogLevel)
}

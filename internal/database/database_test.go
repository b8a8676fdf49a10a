package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	tests := []struct {
		env, level string
		want       logger.LogLevel
	}{
		{"development", "debug", logger.Info},
		{"production", "debug", logger.Info},
		{"production", "info", logger.Silent},
		{"development", "info", logger.Warn},
		{"development", "error", logger.Error},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GormLogLevel(tt.env, tt.level), tt.env+"/"+tt.level)
	}
}

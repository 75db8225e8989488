package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCaptureLogger(t *testing.T) {
	logger, buf := NewCaptureLogger(slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("imported steps", slog.Int("rows", 3))

	assert.False(t, buf.Contains("hidden"))
	assert.True(t, buf.Contains("imported steps"))
	assert.Contains(t, buf.String(), "rows=3")
}

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	assert.NotNil(t, logger)
	logger.Debug("visible under -v")
}

package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"live-quiz-backend/internal/config"
	"live-quiz-backend/internal/logging"
)

func testLoggingConfig(t *testing.T, level string) config.LoggingConfig {
	return config.LoggingConfig{
		Level:      level,
		Directory:  filepath.Join(t.TempDir(), "logs"),
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}
}

func TestNew_WritesJSONFile(t *testing.T) {
	cfg := testLoggingConfig(t, "info")

	log, _, err := logging.New(cfg)
	require.NoError(t, err)

	log.Info("player joined")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(cfg.Directory, "server.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"player joined"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := logging.New(testLoggingConfig(t, "loud"))
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	_, level, err := logging.New(testLoggingConfig(t, "info"))
	require.NoError(t, err)
	assert.False(t, level.Enabled(zapcore.DebugLevel))

	require.NoError(t, logging.SetLevel(level, "debug"))
	assert.True(t, level.Enabled(zapcore.DebugLevel))
}

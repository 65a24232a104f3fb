package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridebook/internal/config"
)

func TestNewLogger(t *testing.T) {
	app := config.AppConfig{Name: "ridebook", Environment: "test", Version: "1.0.0"}

	t.Run("DefaultStdout", func(t *testing.T) {
		logger, closer, err := New(config.LoggingConfig{}, app)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("ConsoleStderr", func(t *testing.T) {
		logger, closer, err := New(config.LoggingConfig{Level: "debug", Output: "stderr", Format: "console"}, app)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		logger, _, err := New(config.LoggingConfig{Level: "loud"}, app)
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ridebook.log")
		logger, closer, err := New(config.LoggingConfig{Level: "info", Output: "file", FilePath: path}, app)
		require.NoError(t, err)
		require.NotNil(t, closer)

		logger.Info().Str("booking_id", "b1").Msg("ride booked")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		line := string(data)
		assert.True(t, strings.Contains(line, `"app":"ridebook"`))
		assert.True(t, strings.Contains(line, `"env":"test"`))
		assert.True(t, strings.Contains(line, `"booking_id":"b1"`))
	})

	t.Run("FileMissingPath", func(t *testing.T) {
		_, _, err := New(config.LoggingConfig{Output: "file"}, app)
		assert.Error(t, err)
	})
}

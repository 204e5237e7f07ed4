package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("set default option", func(t *testing.T) {
		c := NewConfig()

		require.Equal(t, "http://localhost:8000/api", c.APIBaseURL, "default api url not set")
		require.Equal(t, "info", c.LogLevel, "default log level not set")
		require.Equal(t, "text", c.LogFormat, "default log format not set")
		require.Equal(t, 5*time.Second, c.PollInterval, "default poll interval not set")
		require.Equal(t, "", c.ConfigDir, "config dir should be empty by default")
		require.Equal(t, "", c.OutputDir, "output dir should be empty by default")
	})

	t.Run("load env", func(t *testing.T) {
		c := NewConfig()
		getenv := func(key string) string {
			switch key {
			case "STATUSBOARD_API_URL":
				return "http://tracker.internal/api"
			case "STATUSBOARD_LOG_LEVEL":
				return "debug"
			case "STATUSBOARD_POLL_INTERVAL":
				return "10s"
			case "STATUSBOARD_OUTPUT_DIR":
				return "/tmp/reports"
			default:
				return ""
			}
		}

		c.LoadEnv(getenv)

		assert.Equal(t, "http://tracker.internal/api", c.APIBaseURL)
		assert.Equal(t, "debug", c.LogLevel)
		assert.Equal(t, 10*time.Second, c.PollInterval)
		assert.Equal(t, "/tmp/reports", c.OutputDir)
		assert.Equal(t, "text", c.LogFormat, "untouched options keep defaults")
	})

	t.Run("invalid poll interval keeps previous value", func(t *testing.T) {
		c := NewConfig()

		c.LoadEnv(func(key string) string {
			if key == "STATUSBOARD_POLL_INTERVAL" {
				return "not-a-duration"
			}
			return ""
		})

		assert.Equal(t, 5*time.Second, c.PollInterval)
	})

	t.Run("parse flags", func(t *testing.T) {
		c := NewConfig()

		rest, err := c.ParseFlags([]string{"--api-url", "http://tracker.internal/api", "-p", "15s", "watch"})

		require.NoError(t, err)
		assert.Equal(t, "http://tracker.internal/api", c.APIBaseURL)
		assert.Equal(t, 15*time.Second, c.PollInterval)
		assert.Equal(t, []string{"watch"}, rest)
	})

	t.Run("flags stop at the command", func(t *testing.T) {
		c := NewConfig()

		rest, err := c.ParseFlags([]string{"status", "3", "--status", "2"})

		require.NoError(t, err)
		assert.Equal(t, []string{"status", "3", "--status", "2"}, rest, "command flags stay with the command")
	})
}

package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/statusboard/internal/logger"
)

const (
	defaultAPIBaseURL   = "http://localhost:8000/api"
	defaultLogLevel     = logger.LevelInfo
	defaultLogFormat    = logger.FormatText
	defaultPollInterval = 5 * time.Second
)

type Config struct {
	// Versioned base URL of the status-tracking API
	APIBaseURL string

	// Default logging level and output format
	LogLevel  string
	LogFormat string

	// How often the dashboard re-fetches the employee list
	PollInterval time.Duration

	// Directory holding the persisted session; empty selects the XDG default
	ConfigDir string

	// Directory the Excel report is written to; empty means working directory
	OutputDir string
}

func NewConfig() *Config {
	return &Config{
		APIBaseURL:   defaultAPIBaseURL,
		LogLevel:     defaultLogLevel,
		LogFormat:    defaultLogFormat,
		PollInterval: defaultPollInterval,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if d, err := time.ParseDuration(value); err == nil && d > 0 {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"STATUSBOARD_API_URL":       setString(&c.APIBaseURL),
		"STATUSBOARD_LOG_LEVEL":     setString(&c.LogLevel),
		"STATUSBOARD_LOG_FORMAT":    setString(&c.LogFormat),
		"STATUSBOARD_POLL_INTERVAL": setDuration(&c.PollInterval),
		"STATUSBOARD_CONFIG_DIR":    setString(&c.ConfigDir),
		"STATUSBOARD_OUTPUT_DIR":    setString(&c.OutputDir),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// ParseFlags consumes global flags and returns the remaining arguments: the
// command name and its own arguments.
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("statusboard", pflag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVarP(&c.APIBaseURL, "api-url", "a", c.APIBaseURL, "Base URL of the status-tracking API")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Logging format (text, json)")
	fs.DurationVarP(&c.PollInterval, "poll-interval", "p", c.PollInterval, "Dashboard polling interval")
	fs.StringVar(&c.ConfigDir, "config-dir", c.ConfigDir, "Directory for the persisted session")
	fs.StringVarP(&c.OutputDir, "output-dir", "o", c.OutputDir, "Directory for downloaded reports")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

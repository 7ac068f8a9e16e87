// Package config handles the XDG configuration directory, file paths and
// environment settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "taskflow"

	// EnvFile is the optional dotenv file inside the config directory.
	EnvFile = ".env"

	// StorageFile is the SQLite database holding local client state.
	StorageFile = "storage.db"

	// DefaultAPIURL is the hosted backend.
	DefaultAPIURL = "https://taskmanager-backend-gmri.onrender.com/api"

	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 30 * time.Second
)

// Environment variable names.
const (
	EnvAPIURL  = "TASKFLOW_API_URL"
	EnvTimeout = "TASKFLOW_TIMEOUT"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the backend base URL without a trailing slash.
	APIURL string

	// Timeout bounds each API call.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskflow or $HOME/.config/taskflow.
//
// Settings are resolved from <dir>/.env, then the process environment, which
// wins over the file.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:     dir,
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
	}

	env, err := godotenv.Read(filepath.Join(dir, EnvFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invalid %s: %w", EnvFile, err)
	}
	if env == nil {
		env = map[string]string{}
	}
	for _, key := range []string{EnvAPIURL, EnvTimeout} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}

	if v := strings.TrimSpace(env[EnvAPIURL]); v != "" {
		cfg.SetAPIURL(v)
	}
	if v := strings.TrimSpace(env[EnvTimeout]); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvTimeout, v)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// SetAPIURL sets the backend base URL, dropping any trailing slash.
func (c *Config) SetAPIURL(u string) {
	c.APIURL = strings.TrimRight(strings.TrimSpace(u), "/")
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// StoragePath returns the path to the local state database.
func (c *Config) StoragePath() string {
	return filepath.Join(c.Dir, StorageFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// CaptureConfig controls the periodic PNG preview of the grid page.
type CaptureConfig struct {
	// Enabled turns on the screenshot step of the refresh job.
	Enabled bool `yaml:"enabled" json:"enabled" env:"TZGRID_CAPTURE_ENABLED"`
	// URL is the page to capture. Empty means the local /grid page.
	URL string `yaml:"url" json:"url" env:"TZGRID_CAPTURE_URL"`
	// Output is where the PNG is written and served from /preview.png.
	Output     string `yaml:"output" json:"output" env:"TZGRID_CAPTURE_OUTPUT"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" env:"TZGRID_LISTEN"`

	// BaseTimezone seeds the base context on first start. Once the base is
	// changed through the API the stored value wins.
	BaseTimezone string `yaml:"base_timezone" json:"base_timezone" env:"TZGRID_BASE_TIMEZONE"`
	BaseLabel    string `yaml:"base_label" json:"base_label" env:"TZGRID_BASE_LABEL"`

	// RefreshCron is a six-field cron spec (with seconds) for the refresh job.
	RefreshCron string `yaml:"refresh" json:"refresh" env:"TZGRID_REFRESH"`

	// DBPath is the SQLite file holding the roster.
	DBPath string `yaml:"db_path" json:"db_path" env:"TZGRID_DB_PATH"`

	LogLevel string `yaml:"log_level" json:"log_level" env:"TZGRID_LOG_LEVEL"`

	// Timezones is the selectable catalog. Empty means the built-in list.
	Timezones []string `yaml:"timezones" json:"timezones"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultBaseTimezone = "UTC"
	defaultRefreshCron  = "*/30 * * * * *"
	defaultDBPath       = "./var/tzgrid.db"
	defaultLogLevel     = "info"
	defaultCaptureOut   = "./var/preview.png"
	defaultCaptureW     = 1600
	defaultCaptureH     = 900
	defaultCaptureSecs  = 30
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.BaseTimezone == "" {
		c.BaseTimezone = defaultBaseTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Timezones == nil {
		c.Timezones = []string{}
	}
	if c.Capture.Output == "" {
		c.Capture.Output = defaultCaptureOut
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultCaptureW
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultCaptureH
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = defaultCaptureSecs
	}
}

// CaptureURL is the page the refresh job screenshots. It defaults to the
// server's own /grid page.
func (c *Config) CaptureURL() string {
	if c.Capture.URL != "" {
		return c.Capture.URL
	}
	return "http://" + c.Listen + "/grid"
}

// Load loads configuration from the given YAML path, then applies TZGRID_*
// environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600 perms.
//   - Otherwise the YAML is unmarshalled and normalized.
//   - Environment variables always win over the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tzgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

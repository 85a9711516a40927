package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBase        = "http://127.0.0.1:8000"
	DefaultPollInterval   = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultWindow         = 50

	// FileName is looked up in the home directory when no path is given
	FileName = ".llm-inspector.yaml"
)

// Config holds the backend connection and polling settings
type Config struct {
	APIBase        string        `yaml:"api_base"`
	Token          string        `yaml:"token,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DefaultWindow  int           `yaml:"default_window"`
	// CacheDir enables the on-disk detail cache when set
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// Overrides are explicit values from command-line flags; zero values are ignored
type Overrides struct {
	APIBase      string
	Token        string
	PollInterval time.Duration
	CacheDir     string
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		APIBase:        DefaultAPIBase,
		PollInterval:   DefaultPollInterval,
		RequestTimeout: DefaultRequestTimeout,
		DefaultWindow:  DefaultWindow,
	}
}

// Load builds a Config by merging sources (lowest to highest priority):
//  1. built-in defaults
//  2. the YAML file at path, or ~/.llm-inspector.yaml when path is empty
//  3. LLM_INSPECTOR_* environment variables
//  4. flag overrides
//
// An explicitly named file must exist; the default file is optional.
func Load(path string, flags Overrides) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, FileName)
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	cfg.applyOverrides(flags)
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("LLM_INSPECTOR_API"); v != "" {
		c.APIBase = v
	}
	if v := getenv("LLM_INSPECTOR_TOKEN"); v != "" {
		c.Token = v
	}
	if v := getenv("LLM_INSPECTOR_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LLM_INSPECTOR_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v := getenv("LLM_INSPECTOR_DEFAULT_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LLM_INSPECTOR_DEFAULT_WINDOW: %w", err)
		}
		c.DefaultWindow = n
	}
	if v := getenv("LLM_INSPECTOR_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	return nil
}

func (c *Config) applyOverrides(o Overrides) {
	if o.APIBase != "" {
		c.APIBase = o.APIBase
	}
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.PollInterval > 0 {
		c.PollInterval = o.PollInterval
	}
	if o.CacheDir != "" {
		c.CacheDir = o.CacheDir
	}
}

// Validate checks that the settings are usable
func (c Config) Validate() error {
	if c.APIBase == "" {
		return errors.New("api_base must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.DefaultWindow <= 0 {
		return fmt.Errorf("default_window must be positive, got %d", c.DefaultWindow)
	}
	return nil
}

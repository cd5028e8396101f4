package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent on every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

// Config holds all configuration options for the harvester
type Config struct {
	Site     SiteConfig     `yaml:"site" toml:"site" json:"site"`
	Output   OutputConfig   `yaml:"output" toml:"output" json:"output"`
	Proxies  ProxyConfig    `yaml:"proxies" toml:"proxies" json:"proxies"`
	Download DownloadConfig `yaml:"download" toml:"download" json:"download"`
	Extract  ExtractConfig  `yaml:"extract" toml:"extract" json:"extract"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging" json:"logging"`
}

// SiteConfig describes the listing site and the IP echo service
type SiteConfig struct {
	BaseURL   string `yaml:"base_url" toml:"base_url" json:"base_url"`
	EchoURL   string `yaml:"echo_url" toml:"echo_url" json:"echo_url"`
	UserAgent string `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
}

// OutputConfig holds the output directory
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" toml:"base_directory" json:"base_directory"`
}

// ProxyConfig holds proxy pool options
type ProxyConfig struct {
	File              string        `yaml:"file" toml:"file" json:"file"`
	ValidationTimeout time.Duration `yaml:"validation_timeout" toml:"validation_timeout" json:"validation_timeout"`
	Concurrency       int           `yaml:"concurrency" toml:"concurrency" json:"concurrency"`
}

// DownloadConfig holds downloader options
type DownloadConfig struct {
	RequestTimeout    time.Duration `yaml:"request_timeout" toml:"request_timeout" json:"request_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts" toml:"retry_attempts" json:"retry_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" toml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff" toml:"max_backoff" json:"max_backoff"`
	JitterFactor      float64       `yaml:"jitter_factor" toml:"jitter_factor" json:"jitter_factor"`
	MaxRounds         int           `yaml:"max_rounds" toml:"max_rounds" json:"max_rounds"`
	RequestsPerMinute int           `yaml:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute"`
}

// ExtractConfig holds the markup and link patterns
type ExtractConfig struct {
	PaginationSelector string `yaml:"pagination_selector" toml:"pagination_selector" json:"pagination_selector"`
	LinkSelector       string `yaml:"link_selector" toml:"link_selector" json:"link_selector"`
	EntrySuffix        string `yaml:"entry_suffix" toml:"entry_suffix" json:"entry_suffix"`
	TorrentSuffix      string `yaml:"torrent_suffix" toml:"torrent_suffix" json:"torrent_suffix"`
	TorrentPattern     string `yaml:"torrent_pattern" toml:"torrent_pattern" json:"torrent_pattern"`
	Concurrency        int    `yaml:"concurrency" toml:"concurrency" json:"concurrency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
	File   string `yaml:"file" toml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:   "http://www.ptorrents.com",
			EchoURL:   "https://api.seeip.org",
			UserAgent: DefaultUserAgent,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Proxies: ProxyConfig{
			File:              "proxies.txt",
			ValidationTimeout: 15 * time.Second,
			Concurrency:       64,
		},
		Download: DownloadConfig{
			RequestTimeout:    60 * time.Second,
			RetryAttempts:     10,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        30 * time.Second,
			JitterFactor:      0.5,
			MaxRounds:         5,
			RequestsPerMinute: 0,
		},
		Extract: ExtractConfig{
			PaginationSelector: "a.page-numbers",
			LinkSelector:       "a[href]",
			EntrySuffix:        ".html",
			TorrentSuffix:      ".torrent",
			TorrentPattern:     `^https://d\.ptorrents\.com/(.+)/\[[^\]]+\]\.(.+)\.torrent$`,
			Concurrency:        8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("PTSCRAPER_BASE_URL"); v != "" {
		c.Site.BaseURL = v
	}
	if v := os.Getenv("PTSCRAPER_ECHO_URL"); v != "" {
		c.Site.EchoURL = v
	}
	if v := os.Getenv("PTSCRAPER_USER_AGENT"); v != "" {
		c.Site.UserAgent = v
	}
	if v := os.Getenv("PTSCRAPER_BASE_PATH"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("PTSCRAPER_PROXIES_PATH"); v != "" {
		c.Proxies.File = v
	}
	if v := os.Getenv("PTSCRAPER_MAX_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PTSCRAPER_MAX_ROUNDS %q: %w", v, err)
		}
		c.Download.MaxRounds = n
	}
	if v := os.Getenv("PTSCRAPER_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PTSCRAPER_REQUESTS_PER_MINUTE %q: %w", v, err)
		}
		c.Download.RequestsPerMinute = n
	}
	if v := os.Getenv("PTSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PTSCRAPER_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or TOML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"ptscraper.yaml",
		"ptscraper.yml",
		"ptscraper.toml",
		filepath.Join(home, ".config", "ptscraper", "config.yaml"),
		filepath.Join(home, ".config", "ptscraper", "config.toml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	}
	if c.Site.EchoURL == "" {
		errs = append(errs, errors.New("IP echo URL is required"))
	}
	if c.Site.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output base directory is required"))
	}
	if c.Proxies.File == "" {
		errs = append(errs, errors.New("proxies file is required"))
	}
	if c.Proxies.Concurrency <= 0 {
		errs = append(errs, errors.New("proxy validation concurrency must be positive"))
	}
	if c.Download.RetryAttempts <= 0 {
		errs = append(errs, errors.New("retry attempts must be positive"))
	}
	if c.Download.InitialBackoff < 0 || c.Download.MaxBackoff < c.Download.InitialBackoff {
		errs = append(errs, errors.New("backoff bounds are invalid"))
	}
	if c.Download.JitterFactor < 0 || c.Download.JitterFactor > 1 {
		errs = append(errs, errors.New("jitter factor must be between 0 and 1"))
	}
	if c.Download.MaxRounds <= 0 {
		errs = append(errs, errors.New("max rounds must be positive"))
	}
	if c.Download.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Extract.EntrySuffix == "" || c.Extract.TorrentSuffix == "" {
		errs = append(errs, errors.New("entry and torrent suffixes are required"))
	}
	if _, err := regexp.Compile(c.Extract.TorrentPattern); err != nil {
		errs = append(errs, fmt.Errorf("invalid torrent pattern: %w", err))
	}
	if c.Extract.Concurrency <= 0 {
		errs = append(errs, errors.New("extract concurrency must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"auto": true, "console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["base-path"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["proxies-path"].(string); ok && v != "" {
		c.Proxies.File = v
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.Site.UserAgent = v
	}
	if v, ok := flags["max-rounds"].(int); ok && v > 0 {
		c.Download.MaxRounds = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ptscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

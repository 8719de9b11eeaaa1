package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	errs "zonerama/pkg/errors"
)

// EnvPrefix is the prefix for every environment override
const EnvPrefix = "ZONERAMA"

// Config holds all configuration options for the album downloader
type Config struct {
	// Site and browser automation settings
	Zonerama ZoneramaConfig `yaml:"zonerama" json:"zonerama"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Post-download archive handling
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Remembered login
	Session SessionConfig `yaml:"session" json:"session"`

	// Terminal output
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ZoneramaConfig holds site-specific and browser configuration
type ZoneramaConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	AlbumsURL         string        `yaml:"albums_url" json:"albums_url"`
	Headless          bool          `yaml:"headless" json:"headless"`
	SlowMo            time.Duration `yaml:"slow_mo" json:"slow_mo"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ElementTimeout    time.Duration `yaml:"element_timeout" json:"element_timeout"`
	ModalCloseTimeout time.Duration `yaml:"modal_close_timeout" json:"modal_close_timeout"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Directory        string        `yaml:"directory" json:"directory"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	PollInterval     time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxRetries       int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay" json:"retry_delay"`
	ArchiveExtension string        `yaml:"archive_extension" json:"archive_extension"`
	PartialSuffix    string        `yaml:"partial_suffix" json:"partial_suffix"`
	AlbumsPerMinute  int           `yaml:"albums_per_minute" json:"albums_per_minute"`
}

// ExtractionConfig holds archive extraction configuration
type ExtractionConfig struct {
	Unzip          bool  `yaml:"unzip" json:"unzip"`
	DeleteArchives bool  `yaml:"delete_archives" json:"delete_archives"`
	MinArchiveSize int64 `yaml:"min_archive_size" json:"min_archive_size"`
	Workers        int   `yaml:"workers" json:"workers"`
}

// SessionConfig controls whether the browser login is remembered between runs
type SessionConfig struct {
	Remember bool   `yaml:"remember" json:"remember"`
	Profile  string `yaml:"profile" json:"profile"`
}

// OutputConfig holds terminal output configuration
type OutputConfig struct {
	TUI     bool `yaml:"tui" json:"tui"`
	NoColor bool `yaml:"no_color" json:"no_color"`
	Report  bool `yaml:"report" json:"report"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Zonerama: ZoneramaConfig{
			BaseURL:           "https://eu.zonerama.com",
			AlbumsURL:         "",
			Headless:          false,
			SlowMo:            0,
			NavigationTimeout: 60 * time.Second,
			ElementTimeout:    10 * time.Second,
			ModalCloseTimeout: 60 * time.Second,
		},
		Download: DownloadConfig{
			Directory:        "downloads",
			Timeout:          300 * time.Second,
			PollInterval:     time.Second,
			MaxRetries:       2,
			RetryDelay:       2 * time.Second,
			ArchiveExtension: ".zip",
			PartialSuffix:    ".crdownload",
			AlbumsPerMinute:  30,
		},
		Extraction: ExtractionConfig{
			Unzip:          false,
			DeleteArchives: false,
			MinArchiveSize: 1024,
			Workers:        2,
		},
		Session: SessionConfig{
			Remember: true,
			Profile:  "default",
		},
		Output: OutputConfig{
			TUI:     false,
			NoColor: false,
			Report:  true,
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// envOverrides mirrors the settings that may be overridden from the environment.
// Pointer fields stay nil when the variable is unset.
type envOverrides struct {
	DownloadDir          *string        `split_words:"true"`
	AlbumsURL            *string        `split_words:"true"`
	Headless             *bool          `split_words:"true"`
	DownloadTimeout      *time.Duration `split_words:"true"`
	MaxRetries           *int           `split_words:"true"`
	Unzip                *bool          `split_words:"true"`
	DeleteArchives       *bool          `split_words:"true"`
	Workers              *int           `split_words:"true"`
	RememberSession      *bool          `split_words:"true"`
	NotificationsEnabled *bool          `split_words:"true"`
	NoColor              *bool          `split_words:"true"`
	LogLevel             *string        `split_words:"true"`
	LogFile              *string        `split_words:"true"`
}

// LoadFromEnv loads configuration from ZONERAMA_* environment variables
func (c *Config) LoadFromEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if env.DownloadDir != nil && *env.DownloadDir != "" {
		c.Download.Directory = *env.DownloadDir
	}
	if env.AlbumsURL != nil && *env.AlbumsURL != "" {
		c.Zonerama.AlbumsURL = *env.AlbumsURL
	}
	if env.Headless != nil {
		c.Zonerama.Headless = *env.Headless
	}
	if env.DownloadTimeout != nil {
		c.Download.Timeout = *env.DownloadTimeout
	}
	if env.MaxRetries != nil {
		c.Download.MaxRetries = *env.MaxRetries
	}
	if env.Unzip != nil {
		c.Extraction.Unzip = *env.Unzip
	}
	if env.DeleteArchives != nil {
		c.Extraction.DeleteArchives = *env.DeleteArchives
	}
	if env.Workers != nil {
		c.Extraction.Workers = *env.Workers
	}
	if env.RememberSession != nil {
		c.Session.Remember = *env.RememberSession
	}
	if env.NotificationsEnabled != nil {
		c.Notifications.Enabled = *env.NotificationsEnabled
	}
	if env.NoColor != nil {
		c.Output.NoColor = *env.NoColor
	}
	if env.LogLevel != nil && *env.LogLevel != "" {
		c.Logging.Level = *env.LogLevel
	}
	if env.LogFile != nil {
		c.Logging.File = *env.LogFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// DefaultConfigPath is where `config init` writes when no path is given
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zonerama", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "zonerama.yaml"
	}
	return filepath.Join(home, ".config", "zonerama", "config.yaml")
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"zonerama.yaml",
		"zonerama.yml",
		DefaultConfigPath(),
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".zonerama.yaml"),
			filepath.Join(home, ".zonerama.yml"),
		)
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
	var problems []error

	if strings.TrimSpace(c.Download.Directory) == "" {
		problems = append(problems, errors.New("download directory is required"))
	}
	if c.Extraction.DeleteArchives && !c.Extraction.Unzip {
		problems = append(problems, errors.New("deleting archives requires unzip to be enabled"))
	}

	if c.Download.Timeout <= 0 {
		problems = append(problems, errors.New("download timeout must be positive"))
	}
	if c.Download.PollInterval <= 0 {
		problems = append(problems, errors.New("poll interval must be positive"))
	} else if c.Download.Timeout > 0 && c.Download.PollInterval >= c.Download.Timeout {
		problems = append(problems, errors.New("poll interval must be shorter than the download timeout"))
	}
	if c.Download.MaxRetries < 0 || c.Download.MaxRetries > 10 {
		problems = append(problems, errors.New("max retries must be between 0 and 10"))
	}
	if c.Download.RetryDelay < 0 {
		problems = append(problems, errors.New("retry delay cannot be negative"))
	}
	if !strings.HasPrefix(c.Download.ArchiveExtension, ".") || len(c.Download.ArchiveExtension) < 2 {
		problems = append(problems, fmt.Errorf("archive extension %q must start with a dot", c.Download.ArchiveExtension))
	}
	if c.Download.PartialSuffix == "" {
		problems = append(problems, errors.New("partial download suffix is required"))
	}
	if c.Download.AlbumsPerMinute < 0 {
		problems = append(problems, errors.New("albums per minute cannot be negative"))
	}

	if c.Extraction.MinArchiveSize < 0 {
		problems = append(problems, errors.New("minimum archive size cannot be negative"))
	}
	if c.Extraction.Workers < 1 || c.Extraction.Workers > 16 {
		problems = append(problems, errors.New("extraction workers must be between 1 and 16"))
	}

	if c.Zonerama.NavigationTimeout <= 0 || c.Zonerama.ElementTimeout <= 0 {
		problems = append(problems, errors.New("browser timeouts must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		problems = append(problems, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(problems) > 0 {
		return errs.Wrap(errs.ErrorTypeConfiguration, "config.Validate", errors.Join(problems...))
	}

	return nil
}

// EnsureDownloadDirectory creates the download directory when missing and
// rejects paths that exist but are not directories.
func (c *Config) EnsureDownloadDirectory() error {
	info, err := os.Stat(c.Download.Directory)
	switch {
	case err == nil && !info.IsDir():
		return errs.New(errs.ErrorTypeConfiguration, "config.EnsureDownloadDirectory",
			fmt.Sprintf("%s is not a directory", c.Download.Directory))
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		return errs.Wrap(errs.ErrorTypeConfiguration, "config.EnsureDownloadDirectory", err)
	}

	if err := os.MkdirAll(c.Download.Directory, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeConfiguration, "config.EnsureDownloadDirectory", err)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys the user actually set should be present in flags.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["download-dir"].(string); ok && dir != "" {
		c.Download.Directory = dir
	}
	if unzip, ok := flags["unzip"].(bool); ok {
		c.Extraction.Unzip = unzip
	}
	if del, ok := flags["delete"].(bool); ok {
		c.Extraction.DeleteArchives = del
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Zonerama.Headless = headless
	}
	if albumsURL, ok := flags["albums-url"].(string); ok && albumsURL != "" {
		c.Zonerama.AlbumsURL = albumsURL
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if retries, ok := flags["retries"].(int); ok {
		c.Download.MaxRetries = retries
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Extraction.Workers = workers
	}
	if tui, ok := flags["tui"].(bool); ok {
		c.Output.TUI = tui
	}
	if noColor, ok := flags["no-color"].(bool); ok {
		c.Output.NoColor = noColor
	}
	if notify, ok := flags["notify"].(bool); ok {
		c.Notifications.Enabled = notify
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noRemember, ok := flags["no-remember"].(bool); ok && noRemember {
		c.Session.Remember = false
	}
	if profile, ok := flags["profile"].(string); ok && profile != "" {
		c.Session.Profile = profile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env values never override variables already set in the environment
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".zonerama.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "config.Load", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "config.Load", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

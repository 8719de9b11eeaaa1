package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zonerama/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "downloads", config.Download.Directory)
	assert.Equal(t, 300*time.Second, config.Download.Timeout)
	assert.Equal(t, time.Second, config.Download.PollInterval)
	assert.Equal(t, ".zip", config.Download.ArchiveExtension)
	assert.Equal(t, ".crdownload", config.Download.PartialSuffix)
	assert.Equal(t, int64(1024), config.Extraction.MinArchiveSize)
	assert.False(t, config.Extraction.Unzip)
	assert.False(t, config.Extraction.DeleteArchives)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ZONERAMA_DOWNLOAD_DIR", "/tmp/albums")
	t.Setenv("ZONERAMA_UNZIP", "true")
	t.Setenv("ZONERAMA_DELETE_ARCHIVES", "true")
	t.Setenv("ZONERAMA_DOWNLOAD_TIMEOUT", "90s")
	t.Setenv("ZONERAMA_MAX_RETRIES", "4")
	t.Setenv("ZONERAMA_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "/tmp/albums", config.Download.Directory)
	assert.True(t, config.Extraction.Unzip)
	assert.True(t, config.Extraction.DeleteArchives)
	assert.Equal(t, 90*time.Second, config.Download.Timeout)
	assert.Equal(t, 4, config.Download.MaxRetries)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.False(t, config.Session.Remember)
	assert.Equal(t, "work", config.Session.Profile)
}

func TestLoadFromEnvIgnoresUnprefixedVariables(t *testing.T) {
	t.Setenv("UNZIP", "true")
	t.Setenv("LOG_LEVEL", "error")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.False(t, config.Extraction.Unzip)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadFromEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("ZONERAMA_MAX_RETRIES", "many")

	config := DefaultConfig()
	assert.Error(t, config.LoadFromEnv())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
download:
  directory: /srv/photos
  timeout: 2m
  max_retries: 1
extraction:
  unzip: true
  workers: 4
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "/srv/photos", config.Download.Directory)
	assert.Equal(t, 2*time.Minute, config.Download.Timeout)
	assert.Equal(t, 1, config.Download.MaxRetries)
	assert.True(t, config.Extraction.Unzip)
	assert.Equal(t, 4, config.Extraction.Workers)
	assert.Equal(t, "warn", config.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, ".zip", config.Download.ArchiveExtension)
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"delete without unzip", func(c *Config) { c.Extraction.DeleteArchives = true }, "requires unzip"},
		{"delete with unzip", func(c *Config) {
			c.Extraction.DeleteArchives = true
			c.Extraction.Unzip = true
		}, ""},
		{"empty directory", func(c *Config) { c.Download.Directory = " " }, "download directory is required"},
		{"zero timeout", func(c *Config) { c.Download.Timeout = 0 }, "download timeout must be positive"},
		{"poll slower than timeout", func(c *Config) { c.Download.PollInterval = 10 * time.Minute }, "poll interval must be shorter"},
		{"too many retries", func(c *Config) { c.Download.MaxRetries = 11 }, "max retries"},
		{"extension without dot", func(c *Config) { c.Download.ArchiveExtension = "zip" }, "must start with a dot"},
		{"no workers", func(c *Config) { c.Extraction.Workers = 0 }, "extraction workers"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	config := DefaultConfig()
	config.Extraction.DeleteArchives = true
	config.Download.MaxRetries = -1

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires unzip")
	assert.Contains(t, err.Error(), "max retries")
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"download-dir": "/data/zonerama",
		"unzip":        true,
		"delete":       true,
		"timeout":      45 * time.Second,
		"retries":      0,
		"tui":          true,
		"log-level":    "debug",
		"no-remember":  true,
		"profile":      "work",
	})

	assert.Equal(t, "/data/zonerama", config.Download.Directory)
	assert.True(t, config.Extraction.Unzip)
	assert.True(t, config.Extraction.DeleteArchives)
	assert.Equal(t, 45*time.Second, config.Download.Timeout)
	assert.Equal(t, 0, config.Download.MaxRetries)
	assert.True(t, config.Output.TUI)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  directory: from-file\n  max_retries: 5\n"), 0644))

	t.Setenv("ZONERAMA_DOWNLOAD_DIR", "from-env")

	config, err := Load(path, map[string]interface{}{"retries": 1})
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Download.Directory)
	assert.Equal(t, 1, config.Download.MaxRetries)
}

func TestLoadRejectsInvalidCombination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  delete_archives: true\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
}

func TestEnsureDownloadDirectory(t *testing.T) {
	root := t.TempDir()

	config := DefaultConfig()
	config.Download.Directory = filepath.Join(root, "nested", "albums")
	require.NoError(t, config.EnsureDownloadDirectory())
	info, err := os.Stat(config.Download.Directory)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	config.Download.Directory = file
	err = config.EnsureDownloadDirectory()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	config := DefaultConfig()
	config.Download.Directory = "/albums"
	config.Extraction.Unzip = true
	require.NoError(t, config.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "/albums", loaded.Download.Directory)
	assert.True(t, loaded.Extraction.Unzip)
	assert.Equal(t, config.Download.Timeout, loaded.Download.Timeout)
}

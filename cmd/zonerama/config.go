package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"zonerama/pkg/config"
	"zonerama/pkg/ui"
)

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Zonerama configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - ZONERAMA_* environment variables (also read from ./.env and ~/.zonerama.env)
  - The configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Create an example configuration file",
	Long: `Create a commented configuration file with every available option.

Without PATH the file is written to ~/.config/zonerama/config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and report all problems at once,
such as --delete without --unzip or a poll interval longer than the timeout.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	Args:  cobra.NoArgs,
	Run:   runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd, configPathCmd)
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}

const exampleConfig = `# Zonerama configuration file
#
# Every option can also be set with an environment variable, for example
# ZONERAMA_DOWNLOAD_DIR, ZONERAMA_UNZIP or ZONERAMA_LOG_LEVEL.

zonerama:
  base_url: "https://eu.zonerama.com"
  # Your album list. Leave empty to be asked to navigate there after login.
  albums_url: ""
  # A headless browser needs a remembered login.
  headless: false
  slow_mo: 0s
  navigation_timeout: 60s
  element_timeout: 10s
  # How long to wait for the download dialog to close.
  modal_close_timeout: 60s

download:
  directory: "./downloads"
  # Maximum wait for one album archive to appear and settle.
  timeout: 5m
  poll_interval: 1s
  # Retries after a timeout or navigation error (0-10).
  max_retries: 2
  retry_delay: 2s
  archive_extension: ".zip"
  partial_suffix: ".crdownload"
  # Pace album requests; 0 disables pacing.
  albums_per_minute: 30

extraction:
  unzip: false
  # Requires unzip.
  delete_archives: false
  # Archives smaller than this many bytes are treated as broken.
  min_archive_size: 1024
  workers: 2

session:
  # Remember the browser login between runs.
  remember: true
  profile: "default"

output:
  tui: false
  no_color: false
  # Keep a JSON report of the last run per download directory.
  report: true

notifications:
  enabled: false

logging:
  # debug, info, warn, error
  level: "info"
  # Optional JSON log file.
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fail(fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fail(fmt.Errorf("failed to create config directory: %w", err))
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fail(fmt.Errorf("failed to write config file: %w", err))
	}

	ui.PrintSuccess("Configuration file created")
	ui.PrintInfo("Path", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fail(err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fail(fmt.Errorf("failed to marshal config: %w", err))
	}
	if path := configPath(); path != "" {
		ui.PrintInfo("Loaded from", path)
	} else {
		ui.PrintInfo("Loaded from", "defaults and environment")
	}
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		ui.PrintError("Configuration is invalid")
		return fail(err)
	}
	ui.PrintSuccess("Configuration is valid")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	if path := configPath(); path != "" {
		fmt.Fprintln(ui.Output, path)
		return
	}
	ui.PrintWarning("No configuration file found; defaults are used")
	ui.PrintInfo("Create one with", "zonerama config init "+config.DefaultConfigPath())
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}

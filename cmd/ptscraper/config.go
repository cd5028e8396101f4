package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"ptscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ptscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PTSCRAPER_*)
  - Configuration file (YAML or TOML)
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'ptscraper.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML or TOML syntax
  - Selector and torrent pattern values
  - Output and log directory accessibility
  - Presence of the proxy list`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# ptscraper configuration file
#
# Every option can also be set with an environment variable prefixed with
# PTSCRAPER_, for example PTSCRAPER_BASE_PATH or PTSCRAPER_USER_AGENT.

site:
  # Root of the listing site; the index is fetched from here
  base_url: "http://www.ptorrents.com"

  # Service that answers with the caller's public IP in the body
  echo_url: "https://api.seeip.org"

  # Uncomment to replace the built-in browser user agent
  # user_agent: "Mozilla/5.0 ..."

output:
  # Directory holding TORRENTS.JSON, PAGES/, ENTRIES/ and TORRENT/
  base_directory: "."

proxies:
  # One endpoint per line: host:port, http://, https:// or socks5://
  file: "proxies.txt"
  validation_timeout: 15s
  concurrency: 64

download:
  request_timeout: 60s

  # Attempts per job within one round, with exponential backoff
  retry_attempts: 10
  initial_backoff: 100ms
  max_backoff: 30s
  jitter_factor: 0.5

  # Rounds a failing job is requeued before it is reported and skipped
  max_rounds: 5

  # Per proxy; 0 means unlimited
  requests_per_minute: 0

extract:
  # The second-to-last match holds the last page number
  pagination_selector: "a.page-numbers"
  link_selector: "a[href]"
  entry_suffix: ".html"
  torrent_suffix: ".torrent"

  # First group is the directory, last group the file name
  torrent_pattern: '^https://d\.ptorrents\.com/(.+)/\[[^\]]+\]\.(.+)\.torrent$'
  concurrency: 8

logging:
  # debug, info, warn, error
  level: "info"

  # auto, console or json
  format: "auto"

  # Optional file that receives a copy of every log line
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	console := ui.NewConsole(os.Stdout, false)

	configPath := configFile
	if configPath == "" {
		configPath = "ptscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		console.Warn("Configuration file already exists: " + configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("refusing to overwrite %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	console.Success("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Put your proxy endpoints in the file named by proxies.file")
	fmt.Println("2. Run 'ptscraper config validate' to check the configuration")
	fmt.Println("3. Start harvesting with 'ptscraper --base-path <dir>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Println("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (PTSCRAPER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	console := ui.NewConsole(os.Stdout, false)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	warnings := []string{}
	problems := []string{}

	if cfg.Output.BaseDirectory != "" {
		if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if _, err := os.Stat(cfg.Proxies.File); err != nil {
		warnings = append(warnings, fmt.Sprintf("Proxy list %s is not readable", cfg.Proxies.File))
	}
	if cfg.Download.RequestsPerMinute == 0 {
		warnings = append(warnings, "No per-proxy rate limit is configured")
	}

	if len(problems) > 0 {
		console.Warn("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}

	if len(warnings) > 0 {
		console.Warn("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	console.Success("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Site: %s\n", cfg.Site.BaseURL)
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Proxy list: %s\n", cfg.Proxies.File)
	fmt.Printf("  Max rounds: %d\n", cfg.Download.MaxRounds)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}

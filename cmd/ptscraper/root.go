package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"ptscraper/pkg/config"
	"ptscraper/pkg/logger"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	quiet       bool
	basePath    string
	proxiesPath string
	userAgent   string
	maxRounds   int
)

// rootCmd runs a harvest when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ptscraper",
	Short: "Incrementally mirror a torrent listing site through a proxy pool",
	Long: `ptscraper walks a paginated listing site, saves its listing and entry pages,
and downloads every torrent file they link to. All traffic goes through proxies
that are checked to actually change the egress IP.

Progress is kept in TORRENTS.JSON under the base path, so running the command
again only fetches what is new.`,
	Example: `  # Harvest into ./mirror using proxies from proxies.txt
  ptscraper --base-path ./mirror

  # Use a different proxy list and user agent
  ptscraper -b ./mirror -p socks.txt -u "Mozilla/5.0 ..."

  # Show what has been harvested so far
  ptscraper status -b ./mirror`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runHarvest,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./ptscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress step banners and progress bars")
	rootCmd.PersistentFlags().StringVarP(&basePath, "base-path", "b", ".", "directory holding the checkpoint and downloaded files")

	rootCmd.Flags().StringVarP(&proxiesPath, "proxies-path", "p", "proxies.txt", "file with one proxy endpoint per line")
	rootCmd.Flags().StringVarP(&userAgent, "user-agent", "u", config.DefaultUserAgent, "user agent sent with every request")
	rootCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "times a failing job is requeued before giving up (default 5)")

	rootCmd.SetVersionTemplate(`ptscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the flags the user actually set over file, env and defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = value
		}
	}
	set("base-path", basePath)
	set("proxies-path", proxiesPath)
	set("user-agent", userAgent)
	set("max-rounds", maxRounds)
	set("log-level", logLevel)

	return config.Load(configFile, flags)
}

// setupLogging initialises the global logger and returns it
func setupLogging(cfg *config.Config) (logger.Logger, error) {
	logger.Version = version
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialise logging: %w", err)
	}
	return logger.GetLogger(), nil
}

package main

import (
	"github.com/spf13/cobra"

	"ecourt-scraper/internal/config"
	"ecourt-scraper/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	headless   bool
}

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ecourts",
	Short: "Scrape case listings and cause lists from the eCourts portal",
	Long: "ecourts drives a headless browser through the eCourts portal to look up\n" +
		"cases by CNR or download a court complex's cause list for a date.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Config file (default ./config.yaml or ./config/config.yaml)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	f.BoolVar(&rootFlags.headless, "headless", true, "Run the browser headless")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cnrCmd)
	rootCmd.AddCommand(causeListCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(rootFlags.configPath)
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		c.Log.Level = rootFlags.logLevel
	}
	if cmd.Flags().Changed("headless") {
		c.Browser.Headless = rootFlags.headless
	}
	logging.Init(c.Log.Level, c.Log.Format)
	cfg = c
	return nil
}

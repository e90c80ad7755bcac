package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"ghmirror/pkg/config"
	"ghmirror/pkg/logger"
	"ghmirror/pkg/ui"
)

var (
	// Version information
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ghmirror",
	Short: "Incrementally mirror a GitHub repository's history to JSON files",
	Long: `ghmirror mirrors the issues, pull requests, releases and milestones of a
GitHub repository into local JSON files, one file per record.

Each run only fetches what changed since a watermark:
  - --since 2020-03-01 or an RFC 3339 timestamp
  - --since last to resume from the previous successful run
  - no --since to mirror everything

Records are walked newest first and paging stops at the first page that
reaches back past the watermark.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/ghmirror/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")

	rootCmd.SetVersionTemplate(`ghmirror {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags into flags, loads the configuration
// and installs the global logger writing its console output to console
func loadConfig(flags map[string]interface{}, console io.Writer) (*config.Config, logger.Logger, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.NewWithWriter(&cfg.Logging, console)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLogger(log)

	return cfg, log, nil
}

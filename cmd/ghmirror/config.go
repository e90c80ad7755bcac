package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ghmirror/pkg/auth"
	"ghmirror/pkg/config"
	"ghmirror/pkg/github"
	"ghmirror/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ghmirror configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (GHMIRROR_*, GITHUB_TOKEN, .env files)
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option set to its default.

The file is written to --config, or to $HOME/.config/ghmirror/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source.

Secrets such as the token and the broker URL are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store a token with 'ghmirror auth login'")
	fmt.Println("2. Run 'ghmirror config validate' to check the configuration")
	fmt.Println("3. Start mirroring with 'ghmirror crawl <owner>/<name>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.GitHub.Token != "" {
		display.GitHub.Token = auth.MaskToken(display.GitHub.Token)
	}
	if display.Notifications.AMQP.URL != "" {
		display.Notifications.AMQP.URL = auth.MaskToken(display.Notifications.AMQP.URL)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var errs []error
	if _, err := github.PlansFor(cfg.Crawl.Resources); err != nil {
		errs = append(errs, err)
	}
	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("cannot create output directory: %w", err))
	}
	if _, err := parseSince(cfg.Crawl.Since, func() (time.Time, error) { return time.Time{}, nil }); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if cfg.GitHub.Token == "" {
		ui.PrintWarning("No token configured", "the credential store will be used")
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Endpoint: %s\n", cfg.GitHub.Endpoint)
	fmt.Printf("  Resources: %v\n", cfg.Crawl.Resources)
	fmt.Printf("  Concurrency: %d\n", cfg.Crawl.Concurrency)
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  History: %s (enabled: %t)\n", cfg.History.Backend, cfg.History.Enabled)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}

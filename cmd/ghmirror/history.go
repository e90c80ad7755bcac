package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ghmirror/pkg/config"
	"ghmirror/pkg/github"
	"ghmirror/pkg/history"
	"ghmirror/pkg/ui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [repository-url]",
	Short: "List recorded crawl runs",
	Long: `List crawl runs recorded in the history store, newest first.

'ghmirror crawl --since last' resumes each resource from the start of the
latest run that crawled it into the same output directory without error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show, 0 for all")
}

func runHistory(cmd *cobra.Command, args []string) error {
	var repository string
	if len(args) == 1 {
		owner, name, err := github.ParseRepositoryURL(args[0])
		if err != nil {
			return err
		}
		repository = owner + "/" + name
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Backend, cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), repository, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.RenderHistory(runs))

	if repository != "" {
		last, err := store.LastSuccessful(cmd.Context(), repository)
		switch {
		case errors.Is(err, history.ErrNotFound):
			fmt.Fprintln(cmd.OutOrStdout(), "No successful run yet")
		case err != nil:
			return err
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Last successful run started %s\n", ui.SinceLabel(last.StartedAt))
		}
	}
	return nil
}

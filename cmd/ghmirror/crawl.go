package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ghmirror/pkg/auth"
	"ghmirror/pkg/config"
	"ghmirror/pkg/crawler"
	"ghmirror/pkg/github"
	"ghmirror/pkg/history"
	"ghmirror/pkg/logger"
	"ghmirror/pkg/notify"
	"ghmirror/pkg/ratelimit"
	"ghmirror/pkg/retry"
	"ghmirror/pkg/storage"
	"ghmirror/pkg/ui"
	"ghmirror/pkg/ui/tui"
)

var (
	// Crawl command flags
	crawlToken       string
	crawlEndpoint    string
	crawlResources   []string
	crawlConcurrency int
	crawlSince       string
	crawlOutput      string
	crawlRPS         float64
	crawlMaxAttempts int
	crawlSkipCheck   bool
	crawlNoHistory   bool
	crawlNotify      bool
	crawlProgress    string
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl <repository-url> [token]",
	Short: "Mirror new and updated records of a repository",
	Long: `Mirror the issues, pull requests, releases and milestones of a repository.

Files are written to <output>/<owner>/<name>/<resource>/<key>.json. A token is
taken from, in order: the second argument or --token, GHMIRROR_TOKEN or
GITHUB_TOKEN, then the credential store ('ghmirror auth login').`,
	Example: `  # Mirror everything
  ghmirror crawl https://github.com/mui-org/material-ui-pickers

  # Only what changed since the last successful run
  ghmirror crawl mui-org/material-ui-pickers --since last

  # Issues and releases updated since a date, two resources at a time
  ghmirror crawl mui-org/material-ui-pickers --since 2020-03-01 \
    --resources issues,releases --concurrency 2`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	f := crawlCmd.Flags()
	f.StringVarP(&crawlToken, "token", "t", "", "GitHub access token")
	f.StringVar(&crawlEndpoint, "endpoint", "", "GraphQL endpoint (default https://api.github.com/graphql)")
	f.StringSliceVarP(&crawlResources, "resources", "r", nil, "resources to mirror (issues, pullRequests, releases, milestones)")
	f.IntVar(&crawlConcurrency, "concurrency", 1, "number of resources crawled at once")
	f.StringVarP(&crawlSince, "since", "s", "", `watermark: RFC 3339 timestamp, YYYY-MM-DD or "last"`)
	f.StringVarP(&crawlOutput, "output", "o", "", "base output directory")
	f.Float64Var(&crawlRPS, "requests-per-second", 0, "client-side request rate, 0 disables throttling")
	f.IntVar(&crawlMaxAttempts, "max-attempts", 1, "attempts per GraphQL request")
	f.BoolVar(&crawlSkipCheck, "skip-check", false, "do not check that the repository exists before crawling")
	f.BoolVar(&crawlNoHistory, "no-history", false, "do not record this run in the history store")
	f.BoolVar(&crawlNotify, "notify", false, "show a desktop notification when the crawl finishes")
	f.StringVar(&crawlProgress, "progress", "auto", "progress display: auto, tui, line or plain")
}

// crawlFlags collects the flags set on the command line for config.MergeCommandLineFlags
func crawlFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("token") {
		flags["token"] = crawlToken
	}
	if len(args) > 1 {
		flags["token"] = args[1]
	}
	if changed("endpoint") {
		flags["endpoint"] = crawlEndpoint
	}
	if changed("resources") {
		flags["resources"] = crawlResources
	}
	if changed("concurrency") {
		flags["concurrency"] = crawlConcurrency
	}
	if changed("since") {
		flags["since"] = crawlSince
	}
	if changed("output") {
		flags["output"] = crawlOutput
	}
	if changed("requests-per-second") {
		flags["requests-per-second"] = crawlRPS
	}
	if changed("max-attempts") {
		flags["max-attempts"] = crawlMaxAttempts
	}
	if changed("skip-check") {
		flags["check"] = !crawlSkipCheck
	}
	if changed("no-history") {
		flags["history"] = !crawlNoHistory
	}
	if changed("notify") {
		flags["notify"] = crawlNotify
	}
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	owner, name, err := github.ParseRepositoryURL(args[0])
	if err != nil {
		return err
	}
	slug := owner + "/" + name

	mode, err := progressMode(crawlProgress, ui.IsTerminal(os.Stdout))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The TUI owns the terminal, so console logging goes to its log panel
	// until it stops
	var console io.Writer = os.Stderr
	var reporter *tui.Reporter
	if mode == "tui" {
		reporter = tui.NewReporter(slug, cancel)
		reporter.Start()
		defer reporter.Stop()
		console = logger.JSONWriter{Writer: reporter.LogWriter(logger.ConsoleWriter(os.Stderr))}
	}

	cfg, log, err := loadConfig(crawlFlags(cmd, args), console)
	if err != nil {
		return err
	}
	log = log.WithField("repository", slug)

	token, err := resolveToken(cfg, log)
	if err != nil {
		return err
	}

	var store history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Backend, cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
	}

	plans, err := github.PlansFor(cfg.Crawl.Resources)
	if err != nil {
		return err
	}

	root := filepath.Join(cfg.Output.BaseDirectory, owner, name)
	watermark, err := parseSince(cfg.Crawl.Since, func() (time.Time, error) {
		return lastWatermark(ctx, store, slug, root, plans)
	})
	if err != nil {
		return err
	}

	httpClient := github.NewHTTPClient(ctx, token, cfg.GitHub.UserAgent, cfg.GitHub.Timeout)

	if cfg.Crawl.Check {
		info, err := github.NewInspector(httpClient, cfg.GitHub.Endpoint).Inspect(ctx, owner, name)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", slug, err)
		}
		log.InfoWithFields("repository found", map[string]interface{}{
			"private":   info.IsPrivate,
			"archived":  info.IsArchived,
			"pushed_at": info.PushedAt,
		})
	}

	retryCfg := retry.NewConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay, cfg.Retry.MaxDelay, cfg.Retry.Multiplier)
	retryCfg.Logger = log
	executor := github.NewExecutor(httpClient,
		github.WithEndpoint(cfg.GitHub.Endpoint),
		github.WithLimiter(ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
		github.WithRetry(retryCfg),
		github.WithExecutorLogger(log),
	)
	logger.LogComponentStart(log, "executor", map[string]interface{}{
		"endpoint":            cfg.GitHub.Endpoint,
		"requests_per_second": cfg.RateLimit.RequestsPerSecond,
		"max_attempts":        cfg.Retry.MaxAttempts,
	})

	sink, err := storage.NewJSONSink(root)
	if err != nil {
		return err
	}
	logger.LogComponentStart(log, "sink", map[string]interface{}{"root": sink.Root()})

	var progress crawler.Progress
	var finish func()
	switch mode {
	case "tui":
		progress = reporter
		finish = func() {
			if err := reporter.Stop(); err != nil {
				log.WithError(err).Warn("progress display failed")
			}
		}
	default:
		reporter := ui.NewLineReporter(os.Stdout, mode == "line")
		progress = reporter
		finish = reporter.Complete
		fmt.Printf("Fetching new items since %s\n", ui.SinceLabel(watermark))
	}

	c := crawler.New(executor, sink,
		crawler.WithProgress(progress),
		crawler.WithLogger(log),
		crawler.WithPageSize(cfg.Crawl.PageSize),
	)
	orchestrator := crawler.NewOrchestrator(c,
		crawler.WithConcurrency(cfg.Crawl.Concurrency),
		crawler.WithOrchestratorLogger(log),
	)

	target := crawler.Target{
		Owner:           owner,
		Name:            name,
		Watermark:       watermark,
		DestinationRoot: root,
	}
	summary, err := orchestrator.Run(ctx, target, plans)
	finish()
	if err != nil {
		return err
	}

	ui.PrintSummary(os.Stdout, os.Stderr, summary)

	// Bookkeeping still runs after an interrupt
	after := context.WithoutCancel(ctx)
	if store != nil {
		if err := store.Record(after, history.NewRun(slug, summary)); err != nil {
			log.WithError(err).Warn("failed to record run")
		}
	}
	sendNotifications(after, cfg, log, notify.NewEvent(slug, summary))

	if !summary.Succeeded() {
		return fmt.Errorf("crawl finished with errors: %w", summary.FirstError)
	}
	return nil
}

// progressMode resolves "auto" to "tui" on a terminal and "plain" elsewhere
func progressMode(mode string, terminal bool) (string, error) {
	switch mode = strings.ToLower(mode); mode {
	case "auto", "":
		if terminal {
			return "tui", nil
		}
		return "plain", nil
	case "tui", "line", "plain":
		return mode, nil
	}
	return "", fmt.Errorf("invalid progress mode %q", mode)
}

func resolveToken(cfg *config.Config, log logger.Logger) (string, error) {
	host := auth.HostFromEndpoint(cfg.GitHub.Endpoint)

	manager, err := newCredentialManager()
	if err != nil {
		log.WithError(err).Warn("credential store unavailable")
		manager = auth.NewManagerWithStores(auth.NewEnvironmentStore())
	}

	token, source, err := manager.Resolve(cfg.GitHub.Token, host)
	if err != nil {
		return "", fmt.Errorf("no GitHub token for %s: pass one as an argument, set GHMIRROR_TOKEN or run 'ghmirror auth login'", host)
	}
	log.DebugWithFields("token resolved", map[string]interface{}{"source": source})
	return token, nil
}

// parseSince turns a --since value into a watermark. An empty value means
// the beginning of history.
func parseSince(value string, last func() (time.Time, error)) (time.Time, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "beginning":
		return time.Time{}, nil
	case "last":
		return last()
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if day, err := time.Parse(time.DateOnly, value); err == nil {
		return day, nil
	}
	return time.Time{}, fmt.Errorf(`invalid since value %q: want an RFC 3339 timestamp, YYYY-MM-DD or "last"`, value)
}

// lastWatermark is the earliest point from which every planned resource can
// resume into root. A resource no earlier run crawled there without error
// pulls the watermark back to the beginning.
func lastWatermark(ctx context.Context, store history.Store, repository, root string, plans []crawler.Plan) (time.Time, error) {
	if store == nil {
		return time.Time{}, errors.New(`"--since last" needs the run history to be enabled`)
	}
	resources := make([]string, len(plans))
	for i, plan := range plans {
		resources[i] = plan.Resource
	}
	watermark, err := history.ResumeWatermark(ctx, store, repository, root, resources)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read history: %w", err)
	}
	return watermark, nil
}

func sendNotifications(ctx context.Context, cfg *config.Config, log logger.Logger, event notify.Event) {
	var notifiers notify.Multi
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktop())
	}
	if cfg.Notifications.AMQP.Enabled() {
		publisher, err := notify.NewAMQPPublisher(notify.AMQPConfig{
			URL:        cfg.Notifications.AMQP.URL,
			Exchange:   cfg.Notifications.AMQP.Exchange,
			RoutingKey: cfg.Notifications.AMQP.RoutingKey,
		}, log)
		if err != nil {
			log.WithError(err).Warn("failed to connect to amqp broker")
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}

	if err := notifiers.Notify(ctx, event); err != nil {
		log.WithError(err).Warn("failed to send notifications")
	}
}

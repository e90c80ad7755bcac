package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "GHMIRROR_"

// Config holds all configuration options for the mirror
type Config struct {
	// GitHub API access
	GitHub GitHubConfig `yaml:"github" json:"github"`

	// Crawl behaviour
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Client-side request throttling
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Transport retry policy
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Run history used to derive watermarks
	History HistoryConfig `yaml:"history" json:"history"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// GitHubConfig holds GitHub API configuration
type GitHubConfig struct {
	Token     string        `yaml:"token" json:"-"`
	Endpoint  string        `yaml:"endpoint" json:"endpoint"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// CrawlConfig selects which resources are mirrored and how
type CrawlConfig struct {
	Resources   []string `yaml:"resources" json:"resources"`
	Concurrency int      `yaml:"concurrency" json:"concurrency"`
	PageSize    int      `yaml:"page_size" json:"page_size"`
	Since       string   `yaml:"since" json:"since"`
	Check       bool     `yaml:"check" json:"check"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// RetryConfig holds retry configuration for the GraphQL executor
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// HistoryConfig holds run history configuration
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Desktop bool       `yaml:"desktop" json:"desktop"`
	AMQP    AMQPConfig `yaml:"amqp" json:"amqp"`
}

// AMQPConfig configures publishing of crawl summaries to a broker
type AMQPConfig struct {
	URL        string `yaml:"url" json:"-"`
	Exchange   string `yaml:"exchange" json:"exchange"`
	RoutingKey string `yaml:"routing_key" json:"routing_key"`
}

// Enabled reports whether a broker URL is configured
func (a AMQPConfig) Enabled() bool {
	return a.URL != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultResources lists the resource kinds crawled when none are configured.
var DefaultResources = []string{"issues", "pullRequests", "releases", "milestones"}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Endpoint:  "https://api.github.com/graphql",
			UserAgent: "ghmirror",
			Timeout:   60 * time.Second,
		},
		Crawl: CrawlConfig{
			Resources:   append([]string(nil), DefaultResources...),
			Concurrency: 1,
			PageSize:    100,
			Check:       true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1.2,
			Burst:             5,
		},
		Retry: RetryConfig{
			MaxAttempts:  1,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Output: OutputConfig{
			BaseDirectory: filepath.Join(os.TempDir(), "ghmirror"),
		},
		History: HistoryConfig{
			Enabled: true,
			Backend: "bolt",
		},
		Notifications: NotificationConfig{
			Desktop: false,
			AMQP: AMQPConfig{
				Exchange:   "ghmirror",
				RoutingKey: "crawl.summary",
			},
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// GITHUB_TOKEN is honoured for compatibility with other GitHub tooling
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if token := getenv("TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if endpoint := getenv("ENDPOINT"); endpoint != "" {
		c.GitHub.Endpoint = endpoint
	}

	if resources := getenv("RESOURCES"); resources != "" {
		c.Crawl.Resources = splitList(resources)
	}
	if v := getenv("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err))
		} else {
			c.Crawl.Concurrency = n
		}
	}
	if since := getenv("SINCE"); since != "" {
		c.Crawl.Since = since
	}

	if v := getenv("REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_SECOND: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := getenv("MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_ATTEMPTS: %w", EnvPrefix, err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}

	if outputDir := getenv("OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if backend := getenv("HISTORY_BACKEND"); backend != "" {
		c.History.Backend = backend
	}
	if path := getenv("HISTORY_PATH"); path != "" {
		c.History.Path = path
	}

	if desktop := getenv("NOTIFY_DESKTOP"); desktop != "" {
		c.Notifications.Desktop = strings.EqualFold(desktop, "true")
	}
	if url := getenv("AMQP_URL"); url != "" {
		c.Notifications.AMQP.URL = url
	}

	if logLevel := getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := getenv("LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
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

// DefaultPath is where `config init` writes a new configuration file.
func DefaultPath() string {
	return filepath.Join(userHome(), ".config", "ghmirror", "config.yaml")
}

func findConfigFile() string {
	home := userHome()
	locations := []string{
		".ghmirror.yaml",
		".ghmirror.yml",
		filepath.Join(home, ".config", "ghmirror", "config.yaml"),
		filepath.Join(home, ".config", "ghmirror", "config.yml"),
		filepath.Join(home, ".ghmirror.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.GitHub.Endpoint == "" {
		errs = append(errs, errors.New("github endpoint is required"))
	}
	if c.GitHub.Timeout <= 0 {
		errs = append(errs, errors.New("github timeout must be positive"))
	}

	if len(c.Crawl.Resources) == 0 {
		errs = append(errs, errors.New("at least one resource must be selected"))
	}
	seen := make(map[string]bool, len(c.Crawl.Resources))
	for _, r := range c.Crawl.Resources {
		if seen[r] {
			errs = append(errs, fmt.Errorf("resource %q listed twice", r))
		}
		seen[r] = true
	}
	if c.Crawl.Concurrency < 1 {
		errs = append(errs, errors.New("crawl concurrency must be at least 1"))
	}
	if c.Crawl.PageSize < 1 || c.Crawl.PageSize > 100 {
		errs = append(errs, errors.New("page size must be between 1 and 100"))
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst must be positive when rate limiting is enabled"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.MaxAttempts > 1 && c.Retry.InitialDelay <= 0 {
		errs = append(errs, errors.New("retry initial delay must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	switch strings.ToLower(c.History.Backend) {
	case "bolt", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("invalid history backend %q", c.History.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.GitHub.Token = token
	}
	if endpoint, ok := flags["endpoint"].(string); ok && endpoint != "" {
		c.GitHub.Endpoint = endpoint
	}
	if resources, ok := flags["resources"].([]string); ok && len(resources) > 0 {
		c.Crawl.Resources = resources
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Crawl.Concurrency = concurrency
	}
	if since, ok := flags["since"].(string); ok && since != "" {
		c.Crawl.Since = since
	}
	if check, ok := flags["check"].(bool); ok {
		c.Crawl.Check = check
	}
	if rps, ok := flags["requests-per-second"].(float64); ok && rps >= 0 {
		c.RateLimit.RequestsPerSecond = rps
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if history, ok := flags["history"].(bool); ok {
		c.History.Enabled = history
	}
	if desktop, ok := flags["notify"].(bool); ok {
		c.Notifications.Desktop = desktop
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (.env included) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(userHome(), ".ghmirror.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

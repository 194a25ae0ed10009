package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Feeds           []string `yaml:"feeds"`
	FeedFormat      string   `yaml:"feed_format"`
	FeedBaseURL     string   `yaml:"feed_base_url"`
	FeedLimit       int      `yaml:"feed_limit"`
	EnrichLinkPosts bool     `yaml:"enrich_link_posts"`

	Classifier    string   `yaml:"classifier"`
	Keywords      []string `yaml:"keywords"`
	Composer      string   `yaml:"composer"`
	LLMProvider   string   `yaml:"llm_provider"`
	LLMModel      string   `yaml:"llm_model"`
	LLMAPIKey     string   `yaml:"llm_api_key"`
	LLMBaseURL    string   `yaml:"llm_base_url"`
	PromoMobile   string   `yaml:"promo_mobile"`
	PromoSoftware string   `yaml:"promo_software"`
	PortfolioURL  string   `yaml:"portfolio_url"`

	DispatchMode      string `yaml:"dispatch_mode"`
	RedditAccessToken string `yaml:"reddit_access_token"`
	RedditSubject     string `yaml:"reddit_subject"`
	UserAgent         string `yaml:"user_agent"`
	TelegramToken     string `yaml:"telegram_token"`
	TelegramChatID    int64  `yaml:"telegram_chat_id"`

	LedgerBackend string `yaml:"ledger_backend"`
	LedgerDir     string `yaml:"ledger_dir"`
	DBPath        string `yaml:"db_path"`

	PollIntervalSecs   int `yaml:"poll_interval_secs"`
	RetryBackoffSecs   int `yaml:"retry_backoff_secs"`
	ReadyTimeoutSecs   int `yaml:"ready_timeout_secs"`
	SettleDelaySecs    int `yaml:"settle_delay_secs"`
	AfterPostDelaySecs int `yaml:"after_post_delay_secs"`
	FetchTimeoutSecs   int `yaml:"fetch_timeout_secs"`

	ReportTime  string `yaml:"report_time"`
	Timezone    string `yaml:"timezone"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed formats.
const (
	FeedJSON = "json"
	FeedHTML = "html"
)

// Dispatch modes.
const (
	DispatchLog           = "log"
	DispatchReddit        = "reddit"
	DispatchTelegramRelay = "telegram_relay"
)

// Ledger backends.
const (
	LedgerFile   = "file"
	LedgerSQLite = "sqlite"
)

// reportTimeRegex validates HH:MM format with proper ranges.
var reportTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from the flag value, the
// environment, or the default.
func GetConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("HIRE_SCOUT_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// PollInterval is the sleep between successful cycles.
func (c *Config) PollInterval() time.Duration { return secs(c.PollIntervalSecs) }

// RetryBackoff is the sleep after a cycle with fetch errors.
func (c *Config) RetryBackoff() time.Duration { return secs(c.RetryBackoffSecs) }

// ReadyTimeout bounds the wait for a chat channel.
func (c *Config) ReadyTimeout() time.Duration { return secs(c.ReadyTimeoutSecs) }

// SettleDelay is the pause before sending a message.
func (c *Config) SettleDelay() time.Duration { return secs(c.SettleDelaySecs) }

// AfterPostDelay is the pause after each dispatched post.
func (c *Config) AfterPostDelay() time.Duration { return secs(c.AfterPostDelaySecs) }

// FetchTimeout is the HTTP timeout for feed and page requests.
func (c *Config) FetchTimeout() time.Duration { return secs(c.FetchTimeoutSecs) }

// SlogLevel maps log_level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func applyDefaults(cfg *Config) {
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = []string{"/user/gemini_caroline/m/job/new/"}
	}
	if cfg.FeedFormat == "" {
		cfg.FeedFormat = FeedJSON
	}
	if cfg.FeedBaseURL == "" {
		cfg.FeedBaseURL = "https://old.reddit.com"
	}
	if cfg.FeedLimit == 0 {
		cfg.FeedLimit = 25
	}
	if cfg.Classifier == "" {
		cfg.Classifier = "keyword"
	}
	if cfg.Composer == "" {
		cfg.Composer = "rules"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.LLMModel == "" {
		switch cfg.LLMProvider {
		case "gemini":
			cfg.LLMModel = "gemini-2.0-flash-lite"
		default:
			cfg.LLMModel = "gpt-4o-mini"
		}
	}
	if cfg.PromoMobile == "" {
		cfg.PromoMobile = "vastcom.us"
	}
	if cfg.PromoSoftware == "" {
		cfg.PromoSoftware = "nofeelance.com"
	}
	if cfg.PortfolioURL == "" {
		cfg.PortfolioURL = "nofeelance.com"
	}
	if cfg.DispatchMode == "" {
		cfg.DispatchMode = DispatchLog
	}
	if cfg.RedditSubject == "" {
		cfg.RedditSubject = "Saw your post"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "hire-scout/1.0"
	}
	if cfg.LedgerBackend == "" {
		cfg.LedgerBackend = LedgerFile
	}
	if cfg.LedgerDir == "" {
		cfg.LedgerDir = "."
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./hire-scout.db"
	}
	if cfg.PollIntervalSecs == 0 {
		cfg.PollIntervalSecs = 60
	}
	if cfg.RetryBackoffSecs == 0 {
		cfg.RetryBackoffSecs = 60
	}
	if cfg.ReadyTimeoutSecs == 0 {
		cfg.ReadyTimeoutSecs = 15
	}
	if cfg.SettleDelaySecs == 0 {
		cfg.SettleDelaySecs = 5
	}
	if cfg.AfterPostDelaySecs == 0 {
		cfg.AfterPostDelaySecs = 2
	}
	if cfg.FetchTimeoutSecs == 0 {
		cfg.FetchTimeoutSecs = 10
	}
	if cfg.ReportTime == "" {
		cfg.ReportTime = "09:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if cfg.LLMAPIKey == "" {
		switch cfg.LLMProvider {
		case "openai":
			cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.LLMAPIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" && cfg.LLMProvider == "openai" {
		cfg.LLMModel = model
	}
	if dir := os.Getenv("HIRE_SCOUT_LEDGER_DIR"); dir != "" {
		cfg.LedgerDir = dir
	}
	if token := os.Getenv("REDDIT_ACCESS_TOKEN"); token != "" {
		cfg.RedditAccessToken = token
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}
}

func validate(cfg *Config) error {
	if len(cfg.Feeds) == 0 {
		return fmt.Errorf("at least one feed is required")
	}
	if err := oneOf("feed_format", cfg.FeedFormat, FeedJSON, FeedHTML); err != nil {
		return err
	}
	if err := oneOf("classifier", cfg.Classifier, "keyword", "model"); err != nil {
		return err
	}
	if err := oneOf("composer", cfg.Composer, "rules", "generic"); err != nil {
		return err
	}
	if err := oneOf("llm_provider", cfg.LLMProvider, "openai", "gemini"); err != nil {
		return err
	}
	if err := oneOf("dispatch_mode", cfg.DispatchMode, DispatchLog, DispatchReddit, DispatchTelegramRelay); err != nil {
		return err
	}
	if err := oneOf("ledger_backend", cfg.LedgerBackend, LedgerFile, LedgerSQLite); err != nil {
		return err
	}
	if cfg.Classifier == "model" && cfg.LLMAPIKey == "" {
		return fmt.Errorf("llm_api_key is required for the model classifier")
	}
	if cfg.DispatchMode == DispatchReddit && cfg.RedditAccessToken == "" {
		return fmt.Errorf("reddit_access_token is required for reddit dispatch")
	}
	if cfg.DispatchMode == DispatchTelegramRelay && (cfg.TelegramToken == "" || cfg.TelegramChatID == 0) {
		return fmt.Errorf("telegram_token and telegram_chat_id are required for telegram relay")
	}
	if cfg.PollIntervalSecs < 0 || cfg.RetryBackoffSecs < 0 || cfg.AfterPostDelaySecs < 0 ||
		cfg.SettleDelaySecs < 0 || cfg.ReadyTimeoutSecs < 0 || cfg.FetchTimeoutSecs < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if !reportTimeRegex.MatchString(cfg.ReportTime) {
		return fmt.Errorf("report_time must be in HH:MM format (00:00-23:59), got %q", cfg.ReportTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

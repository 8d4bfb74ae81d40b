package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	BrightData BrightDataConfig `yaml:"brightdata" mapstructure:"brightdata"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the cache/run-tracking backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BriefModel     string `yaml:"brief_model" mapstructure:"brief_model"`
	MessagingModel string `yaml:"messaging_model" mapstructure:"messaging_model"`
	SitemapModel   string `yaml:"sitemap_model" mapstructure:"sitemap_model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BrightDataConfig holds BrightData Datasets API settings for LinkedIn
// company profile collection.
type BrightDataConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	DatasetID string `yaml:"dataset_id" mapstructure:"dataset_id"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapeConfig configures website scraping.
type ScrapeConfig struct {
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxSitemapURLs   int     `yaml:"max_sitemap_urls" mapstructure:"max_sitemap_urls"`
	MaxServicesPages int     `yaml:"max_services_pages" mapstructure:"max_services_pages"`
	MaxMarketsPages  int     `yaml:"max_markets_pages" mapstructure:"max_markets_pages"`
	MaxCasePages     int     `yaml:"max_case_pages" mapstructure:"max_case_pages"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// PipelineConfig configures batch concurrency ceilings.
type PipelineConfig struct {
	MaxConcurrentProspects int64 `yaml:"max_concurrent_prospects" mapstructure:"max_concurrent_prospects"`
	MaxConcurrentHTTP      int64 `yaml:"max_concurrent_http" mapstructure:"max_concurrent_http"`
	MaxConcurrentLLM       int64 `yaml:"max_concurrent_llm" mapstructure:"max_concurrent_llm"`
}

// RetryConfig configures retry behavior for external calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MESSAGING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospects.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	// Secrets default empty so AutomaticEnv can populate them on Unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("brightdata.key", "")
	v.SetDefault("brightdata.dataset_id", "")
	v.SetDefault("anthropic.brief_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.messaging_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.sitemap_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("brightdata.base_url", "https://api.brightdata.com/datasets/v3")
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.max_sitemap_urls", 500)
	v.SetDefault("scrape.max_services_pages", 3)
	v.SetDefault("scrape.max_markets_pages", 3)
	v.SetDefault("scrape.max_case_pages", 5)
	v.SetDefault("scrape.requests_per_sec", 8.0)
	v.SetDefault("scrape.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("pipeline.max_concurrent_prospects", 20)
	v.SetDefault("pipeline.max_concurrent_http", 50)
	v.SetDefault("pipeline.max_concurrent_llm", 20)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that credentials required for a real (non-offline) run are
// present. Failures here abort the batch before any prospect is processed.
func (c *Config) Validate() error {
	var missing []string
	if c.Anthropic.Key == "" {
		missing = append(missing, "MESSAGING_ANTHROPIC_KEY")
	}
	if c.BrightData.Key == "" {
		missing = append(missing, "MESSAGING_BRIGHTDATA_KEY")
	}
	if c.BrightData.Key != "" && c.BrightData.DatasetID == "" {
		missing = append(missing, "MESSAGING_BRIGHTDATA_DATASET_ID")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

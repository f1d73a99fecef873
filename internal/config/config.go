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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourceConfig holds the regulator site URLs to ingest from.
type SourceConfig struct {
	RecallsURL string `yaml:"recalls_url" mapstructure:"recalls_url"`
	AlertsURL  string `yaml:"alerts_url" mapstructure:"alerts_url"`
	NoticesURL string `yaml:"notices_url" mapstructure:"notices_url"`
}

// FetchConfig configures page retrieval behavior.
type FetchConfig struct {
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// EnrichConfig configures the company enrichment provider.
type EnrichConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	OpenRouterKey string `yaml:"openrouter_key" mapstructure:"openrouter_key"`
	AnthropicKey  string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model         string `yaml:"model" mapstructure:"model"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
}

// ReportConfig configures summary artifact output.
type ReportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// MonitorConfig configures the periodic source checker.
type MonitorConfig struct {
	IntervalMins int `yaml:"interval_mins" mapstructure:"interval_mins"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "recalls.db")
	v.SetDefault("source.recalls_url", "https://fdaghana.gov.gh/newsroom/product-recalls/")
	v.SetDefault("source.alerts_url", "https://fdaghana.gov.gh/newsroom/product-alerts/")
	v.SetDefault("source.notices_url", "https://fdaghana.gov.gh/newsroom/public-notices/")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.requests_per_sec", 1.0)
	v.SetDefault("fetch.user_agent", "recall-cli/1.0")
	v.SetDefault("enrich.provider", "disabled")
	v.SetDefault("enrich.model", "openai/gpt-4o-mini")
	v.SetDefault("enrich.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("report.dir", "recalled_products")
	v.SetDefault("monitor.interval_mins", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the fields required for the given command mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	checkStore := func() {
		check(c.Store.Driver == "postgres" || c.Store.Driver == "sqlite",
			"store.driver must be postgres or sqlite")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
	}

	switch mode {
	case "ingest", "merge", "export":
		checkStore()
	case "enrich":
		checkStore()
		switch c.Enrich.Provider {
		case "openrouter":
			check(c.Enrich.OpenRouterKey != "", "enrich.openrouter_key is required")
		case "anthropic":
			check(c.Enrich.AnthropicKey != "", "enrich.anthropic_key is required")
		case "disabled":
		default:
			problems = append(problems, "enrich.provider must be openrouter, anthropic, or disabled")
		}
	case "monitor":
		checkStore()
		check(c.Monitor.IntervalMins > 0, "monitor.interval_mins must be > 0")
	case "serve":
		checkStore()
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	check(c.Fetch.TimeoutSecs > 0, "fetch.timeout_secs must be > 0")
	check(c.Fetch.RequestsPerSec > 0, "fetch.requests_per_sec must be > 0")

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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

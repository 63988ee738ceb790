// Package config loads application configuration from file and environment
// and wires the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	MOPS   MOPSConfig   `yaml:"mops" mapstructure:"mops"`
	Prices PricesConfig `yaml:"prices" mapstructure:"prices"`
	Seed   SeedConfig   `yaml:"seed" mapstructure:"seed"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	FX     FXConfig     `yaml:"fx" mapstructure:"fx"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. Driver is "sqlite" or
// "postgres"; Path applies to sqlite and DatabaseURL to postgres.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MOPSConfig holds the MOPS endpoint URLs.
type MOPSConfig struct {
	RevenueURL string `yaml:"revenue_url" mapstructure:"revenue_url"`
	SharesURL  string `yaml:"shares_url" mapstructure:"shares_url"`
}

// PricesConfig holds the price feed URLs, one per market board.
type PricesConfig struct {
	TWSEURL          string `yaml:"twse_url" mapstructure:"twse_url"`
	TPExMainboardURL string `yaml:"tpex_mainboard_url" mapstructure:"tpex_mainboard_url"`
	TPExEmergingURL  string `yaml:"tpex_emerging_url" mapstructure:"tpex_emerging_url"`
}

// SeedConfig holds the company list feed URLs.
type SeedConfig struct {
	ListedURL   string `yaml:"listed_url" mapstructure:"listed_url"`
	OTCURL      string `yaml:"otc_url" mapstructure:"otc_url"`
	EmergingURL string `yaml:"emerging_url" mapstructure:"emerging_url"`
}

// FetchConfig configures upstream HTTP behavior.
type FetchConfig struct {
	TimeoutSecs    int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts    int `yaml:"max_attempts" mapstructure:"max_attempts"`
	RequestDelayMS int `yaml:"request_delay_ms" mapstructure:"request_delay_ms"`
}

// RequestDelay returns the per-company inter-request gap.
func (c FetchConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// FXConfig holds the fixed display conversion rate.
type FXConfig struct {
	TWDPerUSD float64 `yaml:"twd_per_usd" mapstructure:"twd_per_usd"`
}

// BatchConfig configures multi-company processing.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("TWFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "twfin.db")
	v.SetDefault("mops.revenue_url", "https://mops.twse.com.tw/mops/api/t05st10_ifrs")
	v.SetDefault("mops.shares_url", "https://mops.twse.com.tw/mops/api/t05st03")
	v.SetDefault("prices.twse_url", "https://openapi.twse.com.tw/v1/exchangeReport/STOCK_DAY_AVG_ALL")
	v.SetDefault("prices.tpex_mainboard_url", "https://www.tpex.org.tw/openapi/v1/tpex_mainboard_daily_close_quotes")
	v.SetDefault("prices.tpex_emerging_url", "https://www.tpex.org.tw/openapi/v1/tpex_esb_latest_statistics")
	v.SetDefault("seed.listed_url", "https://mopsfin.twse.com.tw/opendata/t187ap03_L.csv")
	v.SetDefault("seed.otc_url", "https://mopsfin.twse.com.tw/opendata/t187ap03_O.csv")
	v.SetDefault("seed.emerging_url", "https://mopsfin.twse.com.tw/opendata/t187ap03_R.csv")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.request_delay_ms", 500)
	v.SetDefault("fx.twd_per_usd", 32.5)
	v.SetDefault("batch.max_concurrent_companies", 3)
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

// Validate checks the configuration needed for the given mode ("fetch" for
// the CLI data commands, "serve" for the HTTP server). Problems are collected
// so one run reports everything that is wrong.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.FX.TWDPerUSD < 0 {
		problems = append(problems, "fx.twd_per_usd must be >= 0")
	}
	if c.Fetch.RequestDelayMS < 0 {
		problems = append(problems, "fetch.request_delay_ms must be >= 0")
	}
	if c.Batch.MaxConcurrentCompanies < 1 || c.Batch.MaxConcurrentCompanies > 20 {
		problems = append(problems, "batch.max_concurrent_companies must be between 1 and 20")
	}

	switch mode {
	case "fetch":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		problems = append(problems, "unknown mode "+mode)
	}

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

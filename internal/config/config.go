package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dev-urban/mailchimp-automation/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Mailchimp MailchimpConfig `yaml:"mailchimp" mapstructure:"mailchimp"`
	Similar   SimilarConfig   `yaml:"similar" mapstructure:"similar"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Campaign  CampaignConfig  `yaml:"campaign" mapstructure:"campaign"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backends. The catalog and the leads can
// live in different databases; when leads_database_url is empty the catalog
// connection serves both.
type StoreConfig struct {
	Driver             string           `yaml:"driver" mapstructure:"driver"`
	CatalogDatabaseURL string           `yaml:"catalog_database_url" mapstructure:"catalog_database_url"`
	LeadsDatabaseURL   string           `yaml:"leads_database_url" mapstructure:"leads_database_url"`
	SQLitePath         string           `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool               store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// MailchimpConfig holds Mailchimp API credentials and campaign sender defaults.
type MailchimpConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	ServerPrefix string `yaml:"server_prefix" mapstructure:"server_prefix"`
	ListID       string `yaml:"list_id" mapstructure:"list_id"`
	FromName     string `yaml:"from_name" mapstructure:"from_name"`
	ReplyTo      string `yaml:"reply_to" mapstructure:"reply_to"`
	SubjectLine  string `yaml:"subject_line" mapstructure:"subject_line"`
}

// SimilarConfig configures the similarity matching rules.
type SimilarConfig struct {
	RadiusKm      float64 `yaml:"radius_km" mapstructure:"radius_km"`
	PriceBandLow  float64 `yaml:"price_band_low" mapstructure:"price_band_low"`
	PriceBandHigh float64 `yaml:"price_band_high" mapstructure:"price_band_high"`
	AreaBandLow   float64 `yaml:"area_band_low" mapstructure:"area_band_low"`
	AreaBandHigh  float64 `yaml:"area_band_high" mapstructure:"area_band_high"`
	MaxResults    int     `yaml:"max_results" mapstructure:"max_results"`
}

// BatchConfig configures lead batch processing.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CampaignConfig configures campaign assembly.
type CampaignConfig struct {
	TemplatePath string `yaml:"template_path" mapstructure:"template_path"`
	AutoSend     bool   `yaml:"auto_send" mapstructure:"auto_send"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("URBAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "urban.db")
	v.SetDefault("mailchimp.from_name", "Urban Select")
	v.SetDefault("mailchimp.reply_to", "mkt@urban.imb.br")
	v.SetDefault("mailchimp.subject_line", "Seu novo lar está aqui!")
	v.SetDefault("similar.radius_km", 3.0)
	v.SetDefault("similar.price_band_low", 0.65)
	v.SetDefault("similar.price_band_high", 1.35)
	v.SetDefault("similar.area_band_low", 0.65)
	v.SetDefault("similar.area_band_high", 1.35)
	v.SetDefault("similar.max_results", 4)
	v.SetDefault("batch.workers", 6)
	v.SetDefault("campaign.template_path", "email_template.html")
	v.SetDefault("campaign.auto_send", false)
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

// Validate checks that the configuration is complete for the given mode.
// Modes: "campaign" (full pipeline, needs stores and Mailchimp), "similar"
// (matching only, needs the catalog store), "serve" (HTTP server).
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres":
			check(c.Store.CatalogDatabaseURL != "", "store.catalog_database_url is required")
		case "sqlite":
			check(c.Store.SQLitePath != "", "store.sqlite_path is required")
		default:
			check(false, fmt.Sprintf("store.driver %q is not supported (postgres, sqlite)", c.Store.Driver))
		}
	}

	checkSimilar := func() {
		check(c.Similar.RadiusKm > 0, "similar.radius_km must be > 0")
		check(c.Similar.MaxResults > 0, "similar.max_results must be > 0")
		check(c.Similar.PriceBandLow > 0 && c.Similar.PriceBandLow <= c.Similar.PriceBandHigh,
			"similar price band must satisfy 0 < low <= high")
		check(c.Similar.AreaBandLow > 0 && c.Similar.AreaBandLow <= c.Similar.AreaBandHigh,
			"similar area band must satisfy 0 < low <= high")
	}

	switch mode {
	case "campaign":
		checkStore()
		checkSimilar()
		check(c.Mailchimp.APIKey != "", "mailchimp.api_key is required")
		check(c.Mailchimp.ServerPrefix != "", "mailchimp.server_prefix is required")
		check(c.Mailchimp.ListID != "", "mailchimp.list_id is required")
		check(c.Campaign.TemplatePath != "", "campaign.template_path is required")
		check(c.Batch.Workers >= 1 && c.Batch.Workers <= 50, "batch.workers must be between 1 and 50")
	case "similar":
		checkStore()
		checkSimilar()
	case "serve":
		checkStore()
		checkSimilar()
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
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

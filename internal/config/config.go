// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Queue   QueueConfig   `mapstructure:"queue"`
	DB      DBConfig      `mapstructure:"db"`
	Extract ExtractConfig `mapstructure:"extract"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig identifies the remote listing and how the bot announces itself.
type SourceConfig struct {
	ListingURL  string `mapstructure:"listing_url"`
	UserAgent   string `mapstructure:"user_agent"`
	DocumentExt string `mapstructure:"document_ext"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// FetchConfig governs document downloads.
type FetchConfig struct {
	CacheDir     string `mapstructure:"cache_dir"`
	DelaySeconds int    `mapstructure:"delay_seconds"`
	ContentType  string `mapstructure:"content_type"`
}

// QueueConfig locates the durable pending queue file.
type QueueConfig struct {
	Path string `mapstructure:"path"`
}

// DBConfig selects and configures the record store provider.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"`
}

// ExtractConfig governs recognition and parallel extraction.
type ExtractConfig struct {
	Concurrency  int    `mapstructure:"concurrency"`
	OCRBinary    string `mapstructure:"ocr_binary"`
	OCRLanguages string `mapstructure:"ocr_languages"`
	RasterBinary string `mapstructure:"raster_binary"`
	MinTextChars int    `mapstructure:"min_text_chars"`
}

// ServerConfig controls the serve subcommand.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COLDCASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.user_agent", "Cold Case Research Bot (sariahshoe@gmail.com)")
	v.SetDefault("source.document_ext", ".pdf")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("fetch.cache_dir", "coldCasePDFs")
	v.SetDefault("fetch.delay_seconds", 1)
	v.SetDefault("fetch.content_type", "application/pdf")
	v.SetDefault("queue.path", "ingest/pending_cases.json")
	v.SetDefault("db.provider", "sqlite")
	v.SetDefault("db.path", "coldcases.db")
	v.SetDefault("extract.concurrency", 4)
	v.SetDefault("extract.ocr_binary", "tesseract")
	v.SetDefault("extract.ocr_languages", "eng")
	v.SetDefault("extract.raster_binary", "pdftoppm")
	v.SetDefault("extract.min_text_chars", 200)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.interval_minutes", 360)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.UserAgent == "" {
		return fmt.Errorf("source.user_agent must be set")
	}
	if !strings.HasPrefix(c.Source.DocumentExt, ".") {
		return fmt.Errorf("source.document_ext must start with a dot")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Fetch.DelaySeconds < 0 {
		return fmt.Errorf("fetch.delay_seconds must be >= 0")
	}
	if c.Fetch.CacheDir == "" {
		return fmt.Errorf("fetch.cache_dir must be set")
	}
	if c.Queue.Path == "" {
		return fmt.Errorf("queue.path must be set")
	}
	if c.Extract.Concurrency <= 0 {
		return fmt.Errorf("extract.concurrency must be > 0")
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("db.path must be set when db.provider is sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.provider %q", c.DB.Provider)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.IntervalMinutes <= 0 {
		return fmt.Errorf("server.interval_minutes must be > 0")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PolitenessDelay is the static floor between successive downloads.
func (c Config) PolitenessDelay() time.Duration {
	return time.Duration(c.Fetch.DelaySeconds) * time.Second
}

// RunInterval is the pause between scheduled runs in serve mode.
func (c Config) RunInterval() time.Duration {
	return time.Duration(c.Server.IntervalMinutes) * time.Minute
}

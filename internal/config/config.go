// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/chart-scraper/internal/scraper"
)

// DefaultUserAgent is the desktop browser string sent with every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/42.0.2311.135 Safari/537.36 Edge/12.246"

// Sink kinds.
const (
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scraper   ScraperConfig     `mapstructure:"scraper"`
	HTTP      HTTPConfig        `mapstructure:"http"`
	Sink      SinkConfig        `mapstructure:"sink"`
	Selectors scraper.Selectors `mapstructure:"selectors"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Logging   LoggingConfig     `mapstructure:"logging"`
}

// ScraperConfig governs catalog discovery and the worker pool.
type ScraperConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	CatalogURL     string        `mapstructure:"catalog_url"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	JitterMax      time.Duration `mapstructure:"jitter_max"`
}

// HTTPConfig configures the fixed request headers and timeout.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
	// RequestTimeout of zero disables the per-request timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SinkConfig selects and configures the record sink.
type SinkConfig struct {
	Kind     string         `mapstructure:"kind"`
	CSV      CSVConfig      `mapstructure:"csv"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// CSVConfig sets the output path and dialect of the delimited file.
type CSVConfig struct {
	Path      string `mapstructure:"path"`
	Delimiter string `mapstructure:"delimiter"`
	Quote     string `mapstructure:"quote"`
}

// DelimiterRune returns the configured delimiter.
func (c CSVConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// QuoteRune returns the configured quote character.
func (c CSVConfig) QuoteRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Quote)
	return r
}

// PostgresConfig controls access to the relational database.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// MetricsConfig controls the optional /metrics and /healthz listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// flagKeys maps CLI flag names to the config keys they override.
var flagKeys = map[string]string{
	"catalog-url":     "scraper.catalog_url",
	"base-url":        "scraper.base_url",
	"max-concurrency": "scraper.max_concurrency",
	"timeout":         "http.request_timeout",
	"sink":            "sink.kind",
	"output":          "sink.csv.path",
	"metrics-addr":    "metrics.addr",
}

// Load builds a Config from disk, environment and any flags in fs that the
// user set explicitly.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

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
	v.SetDefault("scraper.base_url", "https://imdb.com")
	v.SetDefault("scraper.catalog_url", "https://www.imdb.com/chart/moviemeter/?ref_=nv_mv_mpm")
	v.SetDefault("scraper.max_concurrency", 10)
	v.SetDefault("scraper.jitter_max", 200*time.Millisecond)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.accept_language", "pt-BR")
	v.SetDefault("http.request_timeout", time.Duration(0))
	v.SetDefault("sink.kind", SinkCSV)
	v.SetDefault("sink.csv.path", "web_scraping/movies.csv")
	v.SetDefault("sink.csv.delimiter", ",")
	v.SetDefault("sink.csv.quote", `"`)
	v.SetDefault("sink.postgres.dsn", "")
	v.SetDefault("sink.postgres.table", "movies")
	v.SetDefault("sink.postgres.max_conns", 0)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")

	sel := scraper.DefaultSelectors()
	v.SetDefault("selectors.section", sel.Section)
	v.SetDefault("selectors.section_child", sel.SectionChild)
	v.SetDefault("selectors.section_child_index", sel.SectionChildIndex)
	v.SetDefault("selectors.title", sel.Title)
	v.SetDefault("selectors.date", sel.Date)
	v.SetDefault("selectors.rating", sel.Rating)
	v.SetDefault("selectors.plot", sel.Plot)
	v.SetDefault("selectors.catalog_container", sel.CatalogContainer)
	v.SetDefault("selectors.catalog_list", sel.CatalogList)
	v.SetDefault("selectors.catalog_item", sel.CatalogItem)
	v.SetDefault("selectors.catalog_link", sel.CatalogLink)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Scraper.BaseURL) == "" {
		return fmt.Errorf("scraper.base_url must be set")
	}
	if strings.TrimSpace(c.Scraper.CatalogURL) == "" {
		return fmt.Errorf("scraper.catalog_url must be set")
	}
	if c.Scraper.MaxConcurrency <= 0 {
		return fmt.Errorf("scraper.max_concurrency must be > 0")
	}
	if c.Scraper.JitterMax < 0 {
		return fmt.Errorf("scraper.jitter_max must be >= 0")
	}
	if c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("http.request_timeout must be >= 0")
	}
	switch c.Sink.Kind {
	case SinkCSV:
		if err := c.Sink.CSV.validate(); err != nil {
			return err
		}
	case SinkPostgres:
		if strings.TrimSpace(c.Sink.Postgres.DSN) == "" {
			return fmt.Errorf("sink.postgres.dsn must be set when sink.kind is postgres")
		}
	default:
		return fmt.Errorf("sink.kind must be %q or %q, got %q", SinkCSV, SinkPostgres, c.Sink.Kind)
	}
	if err := c.Selectors.Validate(); err != nil {
		return fmt.Errorf("invalid selectors: %w", err)
	}
	return nil
}

func (c CSVConfig) validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("sink.csv.path must be set")
	}
	for key, value := range map[string]string{
		"sink.csv.delimiter": c.Delimiter,
		"sink.csv.quote":     c.Quote,
	} {
		if utf8.RuneCountInString(value) != 1 {
			return fmt.Errorf("%s must be exactly one character", key)
		}
		if value == "\r" || value == "\n" {
			return fmt.Errorf("%s must not be a line break", key)
		}
	}
	if c.Delimiter == c.Quote {
		return fmt.Errorf("sink.csv.delimiter and sink.csv.quote must differ")
	}
	return nil
}

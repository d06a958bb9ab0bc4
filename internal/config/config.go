// Package config holds the root configuration for the CSNews scraping core.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Network  NetworkConfig  `mapstructure:"network"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Events   EventsConfig   `mapstructure:"events"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level" yaml:"level"`
	Format      string `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress" yaml:"compress"`
}

// NetworkConfig holds settings for outbound HTTP requests.
type NetworkConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors"`
	ForceHTTP2      bool          `mapstructure:"force_http2"`
}

// LimiterConfig controls the global request admission gate.
type LimiterConfig struct {
	RequestInterval        time.Duration `mapstructure:"request_interval" validate:"gt=0"`
	MaxRequestsPerInterval int           `mapstructure:"max_requests_per_interval" validate:"gt=0"`
}

// SessionsConfig bounds the identity session pool.
type SessionsConfig struct {
	RotationEnabled bool          `mapstructure:"rotation_enabled"`
	MaxSessions     int           `mapstructure:"max_sessions" validate:"gt=0"`
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	DefaultID       string        `mapstructure:"default_id"`
}

// ProxyConfig describes the optional proxy pools, grouped by type.
type ProxyConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Type        string   `mapstructure:"type" validate:"omitempty,oneof=standard residential datacenter"`
	Standard    []string `mapstructure:"standard"`
	Residential []string `mapstructure:"residential"`
	Datacenter  []string `mapstructure:"datacenter"`
}

// CacheConfig configures the file-backed TTL cache. TTLs are per dataset;
// tournament lookups intentionally use a shorter TTL than news.
type CacheConfig struct {
	Dir                string  `mapstructure:"dir" validate:"required"`
	NewsTTLHours       float64 `mapstructure:"news_ttl_hours" validate:"gt=0"`
	MatchesTTLHours    float64 `mapstructure:"matches_ttl_hours" validate:"gt=0"`
	RankingsTTLHours   float64 `mapstructure:"rankings_ttl_hours" validate:"gt=0"`
	TournamentTTLHours float64 `mapstructure:"tournament_ttl_hours" validate:"gt=0"`
}

// SourcesConfig lists the endpoints the content pipeline pulls from.
type SourcesConfig struct {
	BaseURL       string `mapstructure:"base_url" validate:"required,url"`
	NewsPath      string `mapstructure:"news_path"`
	MatchesPath   string `mapstructure:"matches_path"`
	RankingsPath  string `mapstructure:"rankings_path"`
	FeedURL       string `mapstructure:"feed_url" validate:"omitempty,url"`
	SitemapURL    string `mapstructure:"sitemap_url" validate:"omitempty,url"`
	ThirdPartyURL string `mapstructure:"third_party_url" validate:"omitempty,url"`
}

// CalendarEvent is one known tournament window. The table is configuration,
// not code: stale entries are an operator problem, not a rebuild.
type CalendarEvent struct {
	Month int    `mapstructure:"month" validate:"min=1,max=12"`
	Year  int    `mapstructure:"year" validate:"gt=2000"`
	Name  string `mapstructure:"name" validate:"required"`
}

// EventsConfig injects the tournament calendar heuristic table.
type EventsConfig struct {
	Calendar []CalendarEvent `mapstructure:"calendar" validate:"dive"`
}

// SetDefaults registers the baked-in defaults so the app runs with a minimal
// or absent config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "csnews")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("network.timeout", 15*time.Second)
	v.SetDefault("network.force_http2", true)

	v.SetDefault("limiter.request_interval", time.Minute)
	v.SetDefault("limiter.max_requests_per_interval", 10)

	v.SetDefault("sessions.rotation_enabled", true)
	v.SetDefault("sessions.max_sessions", 5)
	v.SetDefault("sessions.ttl", 30*time.Minute)
	v.SetDefault("sessions.default_id", "default")

	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.type", "standard")

	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.news_ttl_hours", 1.0)
	v.SetDefault("cache.matches_ttl_hours", 0.5)
	v.SetDefault("cache.rankings_ttl_hours", 6.0)
	v.SetDefault("cache.tournament_ttl_hours", 0.25)

	v.SetDefault("sources.base_url", "https://www.hltv.org")
	v.SetDefault("sources.news_path", "/news")
	v.SetDefault("sources.matches_path", "/matches")
	v.SetDefault("sources.rankings_path", "/ranking/teams")
	v.SetDefault("sources.feed_url", "https://www.hltv.org/rss/news")
	v.SetDefault("sources.sitemap_url", "https://www.hltv.org/sitemap-news.xml")
	v.SetDefault("sources.third_party_url", "")
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load initializes the configuration singleton from Viper.
func Load(v *viper.Viper) error {
	var loadErr error
	once.Do(func() {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config: %w", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			loadErr = err
			return
		}
		instance = &cfg
	})
	return loadErr
}

// Set stores a configuration instance directly. Intended for tests and for
// callers that assemble a Config without viper.
func Set(cfg *Config) {
	instance = cfg
}

// Get returns the loaded configuration instance.
func Get() *Config {
	if instance == nil {
		panic("Configuration not initialized. Call config.Load() in the root command.")
	}
	return instance
}

// Default returns a fully populated Config using the baked-in defaults.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config unmarshal: %v", err))
	}
	return &cfg
}

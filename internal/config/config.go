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
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Proxy   ProxyConfig   `yaml:"proxy" mapstructure:"proxy"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Run     RunConfig     `yaml:"run" mapstructure:"run"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// SearchConfig configures the route search backend client.
type SearchConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMs   int    `yaml:"backoff_ms" mapstructure:"backoff_ms"`
}

// ProxyConfig configures the page-content proxy client.
type ProxyConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeocodeConfig configures the geocode providers.
type GeocodeConfig struct {
	ORSBaseURL       string  `yaml:"ors_base_url" mapstructure:"ors_base_url"`
	ORSKey           string  `yaml:"ors_key" mapstructure:"ors_key"`
	NominatimBaseURL string  `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	CountryCode      string  `yaml:"country_code" mapstructure:"country_code"`
	CountryName      string  `yaml:"country_name" mapstructure:"country_name"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	CacheTTLMinutes  int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// RunConfig holds run defaults.
type RunConfig struct {
	RadiusKm       int     `yaml:"radius_km" mapstructure:"radius_km"`
	StepKm         int     `yaml:"step_km" mapstructure:"step_km"`
	ClusterRadiusM float64 `yaml:"cluster_radius_m" mapstructure:"cluster_radius_m"`
}

// Timeout returns the per-attempt search timeout.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the per-page fetch timeout.
func (c ProxyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the per-request geocode timeout.
func (c GeocodeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KLANAVO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("search.base_url", "http://localhost:8000")
	v.SetDefault("search.timeout_secs", 60)
	v.SetDefault("search.max_attempts", 2)
	v.SetDefault("search.backoff_ms", 500)
	v.SetDefault("proxy.base_url", "http://localhost:8000")
	v.SetDefault("proxy.timeout_secs", 10)
	v.SetDefault("geocode.ors_base_url", "https://api.openrouteservice.org")
	v.SetDefault("geocode.ors_key", "")
	v.SetDefault("geocode.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.country_code", "DE")
	v.SetDefault("geocode.country_name", "Deutschland")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.rate_per_sec", 1.0)
	v.SetDefault("geocode.breaker_failures", 5)
	v.SetDefault("geocode.breaker_reset_secs", 60)
	v.SetDefault("geocode.cache_ttl_minutes", 30)
	v.SetDefault("run.radius_km", 10)
	v.SetDefault("run.step_km", 10)
	v.SetDefault("run.cluster_radius_m", 200.0)

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

// Validate checks the settings a command needs. Mode is one of "run",
// "serve", "extract" or "limits".
func (c *Config) Validate(mode string) error {
	var problems []string

	requireURL := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			problems = append(problems, key+" is required")
		}
	}
	requirePositive := func(key string, val int) {
		if val <= 0 {
			problems = append(problems, key+" must be > 0")
		}
	}

	switch mode {
	case "extract":
		return nil
	case "limits":
		requireURL("geocode.ors_base_url", c.Geocode.ORSBaseURL)
		if c.Geocode.ORSKey == "" {
			problems = append(problems, "geocode.ors_key is required")
		}
	case "run", "serve":
		requireURL("search.base_url", c.Search.BaseURL)
		requireURL("proxy.base_url", c.Proxy.BaseURL)
		requireURL("geocode.ors_base_url", c.Geocode.ORSBaseURL)
		requireURL("geocode.nominatim_base_url", c.Geocode.NominatimBaseURL)
		requirePositive("search.timeout_secs", c.Search.TimeoutSecs)
		requirePositive("search.max_attempts", c.Search.MaxAttempts)
		requirePositive("proxy.timeout_secs", c.Proxy.TimeoutSecs)
		requirePositive("geocode.timeout_secs", c.Geocode.TimeoutSecs)
		if c.Geocode.RatePerSec <= 0 {
			problems = append(problems, "geocode.rate_per_sec must be > 0")
		}
		if c.Run.ClusterRadiusM <= 0 {
			problems = append(problems, "run.cluster_radius_m must be > 0")
		}
		if c.Run.RadiusKm < 0 || c.Run.StepKm < 0 {
			problems = append(problems, "run.radius_km and run.step_km must be >= 0")
		}
		if mode == "serve" {
			requirePositive("server.port", c.Server.Port)
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/query"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix namespaces environment overrides: STOCKLENS_SERVICE_BASE_URL.
const EnvPrefix = "STOCKLENS"

type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Query   QueryConfig   `mapstructure:"query"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Trace   TraceConfig   `mapstructure:"trace"`
}

// ServiceConfig locates the analysis service.
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// QueryConfig holds the selections used when a flag is not given.
type QueryConfig struct {
	Days  int    `mapstructure:"days"`
	Model string `mapstructure:"model"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"` // "text", "json" or "yaml"
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// TraceConfig enables span export to stderr.
type TraceConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Load reads configuration from an optional file, layered over Defaults
// and under STOCKLENS_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand ${VAR} references in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("service.base_url", d.Service.BaseURL)
	v.SetDefault("service.timeout", d.Service.Timeout)
	v.SetDefault("query.days", d.Query.Days)
	v.SetDefault("query.model", d.Query.Model)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("trace.enabled", d.Trace.Enabled)
	v.SetDefault("trace.service_name", d.Trace.ServiceName)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Query: QueryConfig{
			Days:  30,
			Model: string(core.ModelXGBoost),
		},
		Output: OutputConfig{
			Format: "text",
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
			Path:    "/metrics",
		},
		Trace: TraceConfig{
			ServiceName: "stocklens",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("service.base_url is required"))
	}
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("service.base_url must be an http(s) URL, got %q", c.Service.BaseURL))
	}
	if c.Service.Timeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("service.timeout must be positive, got %s", c.Service.Timeout))
	}

	// Defaults must themselves be valid selections
	if _, err := query.Validate(query.Input{Ticker: "-", Days: c.Query.Days, Model: c.Query.Model}); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("query defaults: %w", err))
	}

	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("output.format must be text, json or yaml, got %q", c.Output.Format))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log.level: %w", err))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("metrics.addr required when metrics are enabled"))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
		}
	}

	return nil
}

// Package config loads venturefit settings from a YAML file, VENTUREFIT_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joelkehle/venturefit/internal/observability"
)

const (
	App       = "venturefit"
	EnvPrefix = "VENTUREFIT"
)

type Config struct {
	Addr         string                      `mapstructure:"addr"`
	DB           string                      `mapstructure:"db"`
	CatalogFile  string                      `mapstructure:"catalog-file"`
	VenturesFile string                      `mapstructure:"ventures-file"`
	Debug        bool                        `mapstructure:"debug"`
	JSON         bool                        `mapstructure:"json"`
	Cache        CacheConfig                 `mapstructure:"cache"`
	Enrichment   EnrichmentConfig            `mapstructure:"enrichment"`
	Tracing      observability.TracingConfig `mapstructure:"tracing"`
	Backfill     BackfillConfig              `mapstructure:"backfill"`
	Report       ReportConfig                `mapstructure:"report"`
}

type CacheConfig struct {
	VenturesTTL time.Duration `mapstructure:"ventures-ttl"`
	Size        int           `mapstructure:"size"`
}

type EnrichmentConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BusURL     string        `mapstructure:"bus-url"`
	AgentID    string        `mapstructure:"agent-id"`
	Target     string        `mapstructure:"target"`
	Secret     string        `mapstructure:"secret"`
	SecretFile string        `mapstructure:"secret-file"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type BackfillConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ReportConfig struct {
	WebDir string `mapstructure:"web-dir"`
}

// SetDefaults registers every default on v so that environment variables
// can override keys that never appear in a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", "")
	v.SetDefault("catalog-file", "")
	v.SetDefault("ventures-file", "")
	v.SetDefault("debug", false)
	v.SetDefault("json", false)
	v.SetDefault("cache.ventures-ttl", time.Minute)
	v.SetDefault("cache.size", 8)
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.bus-url", "http://localhost:8090")
	v.SetDefault("enrichment.agent-id", "venturefit")
	v.SetDefault("enrichment.target", "candidate-enricher")
	v.SetDefault("enrichment.secret", "")
	v.SetDefault("enrichment.secret-file", "")
	v.SetDefault("enrichment.timeout", 10*time.Second)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.sample-rate", 1.0)
	v.SetDefault("tracing.service-name", App)
	v.SetDefault("backfill.concurrency", 4)
	v.SetDefault("report.web-dir", "")
}

// Prepare wires defaults and environment lookup into v. Keys map to
// VENTUREFIT_<KEY> with dots and dashes replaced by underscores.
func Prepare(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// ReadFile reads the config file at path, or venturefit.yaml in the working
// directory when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	v.AddConfigPath(".")
	v.SetConfigName(App)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Cache.VenturesTTL < 0 {
		errs = append(errs, errors.New("cache.ventures-ttl must not be negative"))
	}
	if c.Cache.Size < 1 {
		errs = append(errs, errors.New("cache.size must be at least 1"))
	}
	if c.Backfill.Concurrency < 1 {
		errs = append(errs, errors.New("backfill.concurrency must be at least 1"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("tracing.sample-rate must be within [0,1]"))
	}
	if c.Enrichment.Enabled {
		if strings.TrimSpace(c.Enrichment.BusURL) == "" {
			errs = append(errs, errors.New("enrichment.bus-url is required when enrichment is enabled"))
		}
		if strings.TrimSpace(c.Enrichment.AgentID) == "" {
			errs = append(errs, errors.New("enrichment.agent-id is required when enrichment is enabled"))
		}
		if strings.TrimSpace(c.Enrichment.Target) == "" {
			errs = append(errs, errors.New("enrichment.target is required when enrichment is enabled"))
		}
	}
	return errors.Join(errs...)
}

// EnrichmentSecret resolves the bus signing secret, preferring the file.
func (c Config) EnrichmentSecret() (string, error) {
	return LoadSecret(SecretSource{
		Name:  "enrichment secret",
		Value: c.Enrichment.Secret,
		File:  c.Enrichment.SecretFile,
	})
}

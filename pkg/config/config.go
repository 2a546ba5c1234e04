// Package config assembles runtime configuration from defaults, an
// optional YAML file, optional .env files and the process environment,
// in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-pipenet/pkg/dataset"
	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/query"
	"github.com/dd0wney/cluso-pipenet/pkg/validation"
)

// Config holds all configuration for the pipenet binaries.
type Config struct {
	Dataset   DatasetConfig     `yaml:"dataset"`
	Server    ServerConfig      `yaml:"server"`
	Limits    query.LimitConfig `yaml:"limits"`
	Logging   LoggingConfig     `yaml:"logging"`
	Auth      AuthConfig        `yaml:"auth"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

type DatasetConfig struct {
	Location    string                  `yaml:"location"`
	LoadTimeout time.Duration           `yaml:"load_timeout"`
	S3          dataset.S3Options       `yaml:"s3"`
	Postgres    dataset.PostgresOptions `yaml:"postgres"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	// TrustedProxies is a comma-separated list of CIDRs or IPs whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies string   `yaml:"trusted_proxies"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig enables bearer-token auth when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// RateLimitConfig bounds requests per client. RPS zero disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			LoadTimeout: time.Minute,
		},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Limits: query.DefaultLimitConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			RPS:   0,
			Burst: 20,
		},
	}
}

// Load builds a Config. path names an optional YAML file; envFiles are
// optional .env files, and a missing one is not an error. Existing
// process environment wins over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup.
// Malformed numeric values are reported together.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}

	str("PIPENET_DATASET", &c.Dataset.Location)
	// PORT is the platform convention; PIPENET_PORT wins when both are set.
	integer("PORT", &c.Server.Port)
	integer("PIPENET_PORT", &c.Server.Port)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	integer("PIPENET_DEFAULT_LIMIT", &c.Limits.DefaultLimit)
	integer("PIPENET_MAX_LIMIT", &c.Limits.MaxLimit)
	str("PIPENET_JWT_SECRET", &c.Auth.JWTSecret)
	float("PIPENET_RATE_LIMIT_RPS", &c.RateLimit.RPS)
	integer("PIPENET_RATE_LIMIT_BURST", &c.RateLimit.Burst)
	str("PIPENET_S3_REGION", &c.Dataset.S3.Region)
	str("PIPENET_S3_ENDPOINT", &c.Dataset.S3.Endpoint)
	boolean("PIPENET_S3_PATH_STYLE", &c.Dataset.S3.PathStyle)
	str("AWS_ACCESS_KEY_ID", &c.Dataset.S3.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &c.Dataset.S3.SecretAccessKey)
	str("PIPENET_PG_TABLE", &c.Dataset.Postgres.Table)
	str("PIPENET_TRUSTED_PROXIES", &c.Server.TrustedProxies)
	if v, ok := lookup("PIPENET_CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("config")
	v.RangeInt("server.port", c.Server.Port, 1, 65535).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, time.Second).
		Custom("server.max_body_bytes", func() error {
			if c.Server.MaxBodyBytes <= 0 {
				return fmt.Errorf("must be positive, got %d", c.Server.MaxBodyBytes)
			}
			return nil
		}).
		MinDuration("dataset.load_timeout", c.Dataset.LoadTimeout, time.Second).
		Custom("limits", c.Limits.Validate).
		OneOf("logging.level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "warning", "error"}).
		OneOf("logging.format", strings.ToLower(c.Logging.Format), []string{"json", "console", "text"}).
		When(c.RateLimit.RPS != 0, func(v *validation.ConfigValidator) {
			v.PositiveFloat("rate_limit.rps", c.RateLimit.RPS).
				Positive("rate_limit.burst", c.RateLimit.Burst)
		}).
		When(c.Auth.JWTSecret != "", func(v *validation.ConfigValidator) {
			v.Custom("auth.jwt_secret", func() error {
				if len(c.Auth.JWTSecret) < 32 {
					return errors.New("must be at least 32 bytes")
				}
				return nil
			})
		})
	return v.Validate()
}

// Addr is the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// DatasetOptions converts the dataset section for dataset.Open.
func (c *Config) DatasetOptions() dataset.Options {
	return dataset.Options{S3: c.Dataset.S3, Postgres: c.Dataset.Postgres}
}

// NewLogger builds the configured zap-backed logger writing to w.
func (c *Config) NewLogger(w io.Writer) *logging.ZapLogger {
	return logging.New(w, logging.ParseLevel(c.Logging.Level), logging.ParseFormat(c.Logging.Format))
}

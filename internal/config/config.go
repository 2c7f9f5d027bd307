package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultMaxAttempts = 3
	DefaultPageSize    = 1000
	MaxPageSize        = 1000
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

type Config struct {
	S3      S3Config      `toml:"s3"`
	Restore RestoreConfig `toml:"restore"`
	Log     LogConfig     `toml:"log"`
}

type S3Config struct {
	Endpoint              string `toml:"endpoint"`
	Region                string `toml:"region"`
	Profile               string `toml:"profile"`
	AccessKeyID           string `toml:"access_key_id"`
	SecretAccessKey       string `toml:"secret_access_key"`
	UsePathStyle          bool   `toml:"use_path_style"`
	MaxAttempts           int    `toml:"max_attempts"`
	PageSize              int    `toml:"page_size"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

type RestoreConfig struct {
	FailFast         bool    `toml:"fail_fast"`
	DeletesPerSecond float64 `toml:"deletes_per_second"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		S3: S3Config{
			MaxAttempts: DefaultMaxAttempts,
			PageSize:    DefaultPageSize,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// The result is not validated; callers overlay flags first.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.S3.MaxAttempts == 0 {
		c.S3.MaxAttempts = DefaultMaxAttempts
	}
	if c.S3.PageSize == 0 {
		c.S3.PageSize = DefaultPageSize
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func (c *Config) Normalize() {
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Profile = strings.TrimSpace(c.S3.Profile)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

func (c *Config) Validate() error {
	if c.S3.MaxAttempts < 1 {
		return errors.New("s3 max_attempts must be >= 1")
	}
	if c.S3.PageSize < 1 || c.S3.PageSize > MaxPageSize {
		return fmt.Errorf("s3 page_size must be between 1 and %d", MaxPageSize)
	}
	if c.S3.RequestTimeoutSeconds < 0 {
		return errors.New("s3 request_timeout_seconds must be >= 0")
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return errors.New("s3 access_key_id and secret_access_key must be set together")
	}
	if c.Restore.DeletesPerSecond < 0 {
		return errors.New("restore deletes_per_second must be >= 0")
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return errors.New("log level must be trace, debug, info, warn, or error")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.New("log format must be console or json")
	}
	return nil
}

// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StorageConfig configures the durable backend for area records.
type StorageConfig struct {
	// Driver is one of "file", "sqlite", or "s3".
	Driver string   `yaml:"driver" mapstructure:"driver"`
	Path   string   `yaml:"path" mapstructure:"path"`
	S3     S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config holds the S3-compatible object store settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Key       string `yaml:"key" mapstructure:"key"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
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
	v.SetEnvPrefix("GEOFENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "areas/areas.json")
	v.SetDefault("storage.s3.key", "areas.json")
	v.SetDefault("storage.s3.use_ssl", true)
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

// Validate checks the settings a command depends on. Mode is "serve"
// for the HTTP server and "cli" for one-shot commands.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			problems = append(problems, "storage.path is required")
		}
	case "s3":
		if c.Storage.S3.Endpoint == "" {
			problems = append(problems, "storage.s3.endpoint is required")
		}
		if c.Storage.S3.Bucket == "" {
			problems = append(problems, "storage.s3.bucket is required")
		}
		if c.Storage.S3.Key == "" {
			problems = append(problems, "storage.s3.key is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "cli":
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

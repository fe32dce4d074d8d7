// Package config loads service settings from flags, environment variables
// (ACCRED_*) and an optional accreditation.yaml file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "ACCRED"

// Config holds the validated service configuration
type Config struct {
	HTTPPort int

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	CatalogPath   string
	StrictCatalog bool

	SubmitTimeout time.Duration
	SubmitRetries uint64

	UploadMaxSizeMB         int64
	UploadAllowedTypes      []string
	UploadAllowedExtensions []string

	CORSAllowedOrigins []string

	LogLevel       string
	LogDevelopment bool
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Init points v at the config file locations and environment, and sets defaults
func Init(v *viper.Viper, configFile string) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("accreditation")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("http-port", 8080)
	v.SetDefault("mongo-uri", "mongodb://localhost:27017")
	v.SetDefault("mongo-database", "accreditation")
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-password", "")
	v.SetDefault("redis-db", 0)
	v.SetDefault("redis-ttl", 72*time.Hour)
	v.SetDefault("catalog-path", "")
	v.SetDefault("strict-catalog", true)
	v.SetDefault("submit-timeout", 15*time.Second)
	v.SetDefault("submit-retries", 3)
	v.SetDefault("upload-max-size-mb", 10)
	v.SetDefault("upload-allowed-types", []string{"application/pdf", "image/jpeg", "image/png"})
	v.SetDefault("upload-allowed-extensions", []string{".pdf", ".jpg", ".jpeg", ".png"})
	v.SetDefault("cors-allowed-origins", []string{"*"})
	v.SetDefault("log-level", "info")
	v.SetDefault("log-development", false)
}

// Load reads the config file when there is one and validates the result
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPPort:                v.GetInt("http-port"),
		MongoURI:                v.GetString("mongo-uri"),
		MongoDatabase:           v.GetString("mongo-database"),
		RedisAddr:               v.GetString("redis-addr"),
		RedisPassword:           v.GetString("redis-password"),
		RedisDB:                 v.GetInt("redis-db"),
		RedisTTL:                v.GetDuration("redis-ttl"),
		CatalogPath:             v.GetString("catalog-path"),
		StrictCatalog:           v.GetBool("strict-catalog"),
		SubmitTimeout:           v.GetDuration("submit-timeout"),
		SubmitRetries:           v.GetUint64("submit-retries"),
		UploadMaxSizeMB:         v.GetInt64("upload-max-size-mb"),
		UploadAllowedTypes:      splitList(v.GetStringSlice("upload-allowed-types")),
		UploadAllowedExtensions: splitList(v.GetStringSlice("upload-allowed-extensions")),
		CORSAllowedOrigins:      splitList(v.GetStringSlice("cors-allowed-origins")),
		LogLevel:                v.GetString("log-level"),
		LogDevelopment:          v.GetBool("log-development"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	switch {
	case c.HTTPPort <= 0 || c.HTTPPort > 65535:
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	case c.MongoURI == "":
		return errors.New("mongo-uri is required")
	case c.MongoDatabase == "":
		return errors.New("mongo-database is required")
	case c.RedisAddr == "":
		return errors.New("redis-addr is required")
	case c.RedisTTL <= 0:
		return fmt.Errorf("redis-ttl must be positive, got %s", c.RedisTTL)
	case c.SubmitTimeout <= 0:
		return fmt.Errorf("submit-timeout must be positive, got %s", c.SubmitTimeout)
	case c.UploadMaxSizeMB <= 0:
		return fmt.Errorf("upload-max-size-mb must be positive, got %d", c.UploadMaxSizeMB)
	}
	return nil
}

// splitList accepts both YAML lists and comma separated env values
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

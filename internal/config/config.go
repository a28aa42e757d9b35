// Package config loads application configuration from the environment,
// an optional .env file and an optional config.yaml.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/spf13/viper"
)

const (
	EnvProd = "production"
	EnvDev  = "development"
	EnvTest = "test"
)

// Storage drivers understood by storage.Open.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQL    = "sql"
	StorageRedis  = "redis"
)

// Config holds application configuration loaded from environment variables or config file.
type Config struct {
	AppEnv      string `mapstructure:"app_env" default:"development" validate:"required,oneof=production development test"`
	Port        string `mapstructure:"port" default:"3000" validate:"required"`
	APIEndpoint string `mapstructure:"api_endpoint" default:"http://localhost:8080/api" validate:"required,url"`

	// Local storage substrate
	StorageDriver string `mapstructure:"storage_driver" default:"memory" validate:"oneof=memory file sql redis"`
	StoragePath   string `mapstructure:"storage_path" default:".complyhub"`
	DatabaseURL   string `secret:"true" mapstructure:"database_url" validate:"required_if=StorageDriver sql"`
	RedisURL      string `secret:"true" mapstructure:"redis_url" validate:"required_if=StorageDriver redis"`

	// Advisory client-side rate limiting
	RateLimitWindow      time.Duration `mapstructure:"rate_limit_window" default:"60s" validate:"gt=0"`
	RateLimitMaxAttempts int           `mapstructure:"rate_limit_max_attempts" default:"5" validate:"gt=0"`

	// Hosts accepted for redirects and emitted in the CSP header
	AllowedDomains []string `mapstructure:"allowed_domains"`

	// Proxies whose X-Forwarded-For / X-Real-IP headers are believed (IPs or CIDRs)
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,ip|cidr"`

	// Logging
	LogLevel string `mapstructure:"log_level" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

// Load loads configuration from config file and environment variables using viper.
func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{}

	v := viper.New()
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	if err := defaults.Set(&cfg); err != nil {
		panic("failed to set struct defaults: " + err.Error())
	}

	typeOfCfg := reflect.TypeOf(cfg)
	for i := 0; i < typeOfCfg.NumField(); i++ {
		field := typeOfCfg.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Error("Error read config file", "error", err)
		}
		logger.Debug("No config file found, using environment variables")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		logger.Warn("Could not unmarshal config", "error", err)
	}
	cfg.AllowedDomains = normalizeList(cfg.AllowedDomains)
	cfg.TrustedProxies = normalizeList(cfg.TrustedProxies)

	logger.Debug("Loaded config", "config", cfg.String())

	return &cfg
}

// Validate checks struct-level constraints.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment reports whether developer-only surfaces should be enabled.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDev
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).Interface()
		if field.Tag.Get("secret") == "true" && !v.Field(i).IsZero() {
			value = "***REDACTED***"
		}
		sb.WriteString(field.Name + ": " + toString(value))
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// normalizeList accepts both list and comma separated forms and lowercases.
func normalizeList(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, d := range strings.Split(entry, ",") {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				out = append(out, d)
			}
		}
	}
	return out
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(str string) string {
	runes := []rune(str)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				out = append(out, '_')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"utgifter/internal/log"
)

// Keys double as environment variable names.
const (
	KeyPort               = "PORT"
	KeyDatabaseDriver     = "DATABASE_DRIVER"
	KeyDatabaseURL        = "DATABASE_URL"
	KeyInferenceURL       = "INFERENCE_URL"
	KeyInferenceModel     = "INFERENCE_MODEL"
	KeyInferenceTimeout   = "INFERENCE_TIMEOUT"
	KeyClassifierLabels   = "CLASSIFIER_LABELS"
	KeyClassifierCacheTTL = "CLASSIFIER_CACHE_TTL"
	KeyFallbackCategory   = "FALLBACK_CATEGORY"
	KeySeedCategories     = "SEED_CATEGORIES"
	KeyAMQPURL            = "AMQP_URL"
	KeyAMQPExchange       = "AMQP_EXCHANGE"
	KeyAMQPQueue          = "AMQP_QUEUE"
	KeyRateLimit          = "RATE_LIMIT_PER_MINUTE"
	KeyTrustedProxies     = "TRUSTED_PROXIES"
	KeyLogLevel           = "LOG_LEVEL"
	KeyLogFormat          = "LOG_FORMAT"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Classifier
	InferenceURL       string
	InferenceModel     string
	InferenceTimeout   time.Duration
	ClassifierLabels   []string // empty means the stored categories
	ClassifierCacheTTL time.Duration
	FallbackCategory   string
	SeedCategories     []string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string
}

// SetDefaults registers every default on v and makes it read the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyDatabaseDriver, "sqlite")
	v.SetDefault(KeyDatabaseURL, "./data/utgifter.db")
	v.SetDefault(KeyInferenceURL, "http://localhost:11434/")
	v.SetDefault(KeyInferenceModel, "mistral")
	v.SetDefault(KeyInferenceTimeout, 5*time.Second)
	v.SetDefault(KeyClassifierLabels, "")
	v.SetDefault(KeyClassifierCacheTTL, 10*time.Minute)
	v.SetDefault(KeyFallbackCategory, "Övrigt")
	v.SetDefault(KeySeedCategories, "Mat,Transport,Boende,Nöje,Övrigt")
	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "utgifter")
	v.SetDefault(KeyAMQPQueue, "expense_events")
	v.SetDefault(KeyRateLimit, 120)
	v.SetDefault(KeyTrustedProxies, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.AutomaticEnv()
}

// Load resolves the configuration from v. Call SetDefaults first.
func Load(v *viper.Viper) *Config {
	return &Config{
		Port:               v.GetString(KeyPort),
		RateLimitPerMinute: v.GetInt(KeyRateLimit),
		TrustedProxies:     splitList(v.GetString(KeyTrustedProxies)),

		DatabaseDriver: strings.ToLower(strings.TrimSpace(v.GetString(KeyDatabaseDriver))),
		DatabaseURL:    v.GetString(KeyDatabaseURL),

		InferenceURL:       strings.TrimSpace(v.GetString(KeyInferenceURL)),
		InferenceModel:     v.GetString(KeyInferenceModel),
		InferenceTimeout:   v.GetDuration(KeyInferenceTimeout),
		ClassifierLabels:   splitList(v.GetString(KeyClassifierLabels)),
		ClassifierCacheTTL: v.GetDuration(KeyClassifierCacheTTL),
		FallbackCategory:   strings.TrimSpace(v.GetString(KeyFallbackCategory)),
		SeedCategories:     splitList(v.GetString(KeySeedCategories)),

		AMQPURL:      v.GetString(KeyAMQPURL),
		AMQPExchange: v.GetString(KeyAMQPExchange),
		AMQPQueue:    v.GetString(KeyAMQPQueue),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabaseURL == "" {
			errors = append(errors, "database URL cannot be empty when using the sqlite driver")
		} else if dir := filepath.Dir(c.DatabaseURL); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "database URL cannot be empty when using the postgres driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite postgres]", c.DatabaseDriver))
	}

	if c.InferenceURL != "" {
		if u, err := url.Parse(c.InferenceURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid inference URL '%s': %v", c.InferenceURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid inference URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if c.InferenceTimeout <= 0 || c.InferenceTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid inference timeout %v: must be between 0 and 2 minutes", c.InferenceTimeout))
	}
	if c.ClassifierCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid classifier cache TTL %v: must not be negative", c.ClassifierCacheTTL))
	}
	if c.FallbackCategory == "" {
		errors = append(errors, "fallback category cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 10.0.0.0/8", cidr))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// splitList reads a comma separated value, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

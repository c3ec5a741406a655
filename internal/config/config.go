// Package config loads and validates uxeval configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration.
type Config struct {
	// Model server settings.
	OllamaURL      string
	PrimaryModel   string
	PrimaryVision  bool
	FallbackModel  string
	FallbackVision bool
	ModelTimeout   time.Duration // per generate attempt
	MaxRetries     int
	RetryBaseDelay time.Duration
	MaxImages      int
	Temperature    float64
	MaxTokens      int

	// Filesystem layout.
	ResultsDir   string // one subdirectory per persona session
	ReportsDir   string
	PersonasFile string // optional YAML overrides for built-in personas

	// Scenario target.
	SiteBaseURL string

	// Cron expression (with seconds) for the schedule command.
	Schedule string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Every malformed variable is reported, not just the first.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		OllamaURL:     envStr("OLLAMA_URL", "http://localhost:11434"),
		PrimaryModel:  envStr("UXEVAL_PRIMARY_MODEL", "qwen2.5vl:72b"),
		FallbackModel: envStr("UXEVAL_FALLBACK_MODEL", "mistral:7b-instruct"),
		ResultsDir:    envStr("UXEVAL_RESULTS_DIR", "test-results/ux-eval"),
		ReportsDir:    envStr("UXEVAL_REPORTS_DIR", "test-results/ux-eval/reports"),
		PersonasFile:  envStr("UXEVAL_PERSONAS_FILE", ""),
		SiteBaseURL:   envStr("SITE_BASE_URL", "http://localhost:3000"),
		Schedule:      envStr("UXEVAL_SCHEDULE", "0 0 6 * * *"),
		OTELEndpoint:  envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:   envStr("OTEL_SERVICE_NAME", "uxeval"),
		LogLevel:      envStr("UXEVAL_LOG_LEVEL", "info"),
	}

	var err error
	cfg.PrimaryVision, err = envBool("UXEVAL_PRIMARY_VISION", true)
	collect(err)
	cfg.FallbackVision, err = envBool("UXEVAL_FALLBACK_VISION", false)
	collect(err)
	cfg.ModelTimeout, err = envDuration("UXEVAL_MODEL_TIMEOUT", 120*time.Second)
	collect(err)
	cfg.MaxRetries, err = envInt("UXEVAL_MAX_RETRIES", 2)
	collect(err)
	cfg.RetryBaseDelay, err = envDuration("UXEVAL_RETRY_BASE_DELAY", time.Second)
	collect(err)
	cfg.MaxImages, err = envInt("UXEVAL_MAX_IMAGES", 5)
	collect(err)
	cfg.Temperature, err = envFloat("UXEVAL_TEMPERATURE", 0.3)
	collect(err)
	cfg.MaxTokens, err = envInt("UXEVAL_MAX_TOKENS", 2000)
	collect(err)
	cfg.OTELInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", false)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.OllamaURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("OLLAMA_URL=%q is not an absolute URL", c.OllamaURL))
	}
	if c.PrimaryModel == "" && c.FallbackModel == "" {
		errs = append(errs, errors.New("at least one of UXEVAL_PRIMARY_MODEL or UXEVAL_FALLBACK_MODEL is required"))
	}
	if c.ModelTimeout <= 0 {
		errs = append(errs, errors.New("UXEVAL_MODEL_TIMEOUT must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("UXEVAL_MAX_RETRIES must be >= 0"))
	}
	if c.RetryBaseDelay < 0 {
		errs = append(errs, errors.New("UXEVAL_RETRY_BASE_DELAY must be >= 0"))
	}
	if c.MaxImages < 0 {
		errs = append(errs, errors.New("UXEVAL_MAX_IMAGES must be >= 0"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("UXEVAL_TEMPERATURE=%v must be within [0, 2]", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("UXEVAL_MAX_TOKENS must be positive"))
	}
	if c.ResultsDir == "" {
		errs = append(errs, errors.New("UXEVAL_RESULTS_DIR is required"))
	}
	if c.ReportsDir == "" {
		errs = append(errs, errors.New("UXEVAL_REPORTS_DIR is required"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("UXEVAL_LOG_LEVEL=%q must be one of debug, info, warn, error", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

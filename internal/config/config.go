// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes remote credentials,
// store location, sync and ban policy knobs, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// RedditConfig holds the script-app OAuth2 credentials.
type RedditConfig struct {
	ClientID     string // REDDIT_CLIENT_ID
	ClientSecret string // REDDIT_CLIENT_SECRET
	Username     string // REDDIT_USERNAME
	Password     string // REDDIT_PASSWORD
	UserAgent    string // REDDIT_USER_AGENT
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	Reddit RedditConfig

	// Store
	DataDir string // directory holding one SQLite file per subreddit

	// Sync policy
	PageLimit int // max events per log fetch

	// Ban policy
	Threshold    float64 // verdict threshold on the summed score
	WindowDays   int     // trailing window for ranking and ban exclusion
	CooldownDays int     // reconciliation backdate; must not exceed WindowDays
	BanNote      string  // fixed audit note on ban actions
	Locale       language.Tag

	// Observability
	MetricsAddr string // optional promhttp listen address, "" disables
	OTEL        OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Reddit: RedditConfig{
			ClientID:     getenv("REDDIT_CLIENT_ID", ""),
			ClientSecret: getenv("REDDIT_CLIENT_SECRET", ""),
			Username:     getenv("REDDIT_USERNAME", ""),
			Password:     getenv("REDDIT_PASSWORD", ""),
			UserAgent:    getenv("REDDIT_USER_AGENT", "subguard/1.0"),
		},

		DataDir: getenv("DATA_DIR", "."),

		PageLimit: getint("PAGE_LIMIT", 1001),

		Threshold:    getfloat("BAN_THRESHOLD", 4.0),
		WindowDays:   getint("WINDOW_DAYS", 30),
		CooldownDays: getint("COOLDOWN_DAYS", 7),
		BanNote:      getenv("BAN_NOTE", "Autoban for Multiple remove"),

		MetricsAddr: getenv("METRICS_ADDR", ""),
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "subguard"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- locale ---
	loc := getenv("LOCALE", "it")
	tag, err := language.Parse(loc)
	if err != nil {
		return cfg, errors.New("LOCALE must be a valid BCP 47 tag")
	}
	cfg.Locale = tag

	// --- validation ---
	if strings.TrimSpace(cfg.DataDir) == "" {
		return cfg, errors.New("DATA_DIR must not be empty")
	}
	if cfg.PageLimit < 1 {
		return cfg, errors.New("PAGE_LIMIT must be >= 1")
	}
	if cfg.Threshold <= 0 {
		return cfg, errors.New("BAN_THRESHOLD must be > 0")
	}
	if cfg.WindowDays < 1 {
		return cfg, errors.New("WINDOW_DAYS must be >= 1")
	}
	if cfg.CooldownDays < 1 {
		return cfg, errors.New("COOLDOWN_DAYS must be >= 1")
	}
	if cfg.WindowDays < cfg.CooldownDays {
		return cfg, errors.New("WINDOW_DAYS must be >= COOLDOWN_DAYS")
	}
	if strings.TrimSpace(cfg.Reddit.UserAgent) == "" {
		return cfg, errors.New("REDDIT_USER_AGENT must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

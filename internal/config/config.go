package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey string

	// HistoryFile is the JSON history log.
	HistoryFile string `validate:"required"`

	// RetentionWindow is how long records survive a prune. Timestamps have
	// one-second resolution, so shorter windows are rejected.
	RetentionWindow time.Duration `validate:"min=1s"`

	// ResetCorruptHistory archives an unparseable history file on prune
	// instead of reporting the error.
	ResetCorruptHistory bool

	Units       weather.Units `validate:"oneof=metric imperial standard"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Scheduler settings for serve mode.
	PruneInterval time.Duration `validate:"gt=0"`
	FetchInterval time.Duration `validate:"gt=0"`
	Cities        []string      `validate:"dive,required"`

	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	return &AppConfig{
		HistoryFile:     store.DefaultPath,
		RetentionWindow: store.DefaultRetentionWindow,
		Units:           weather.UnitsMetric,
		HTTPTimeout:     10 * time.Second,
		PruneInterval:   time.Hour,
		FetchInterval:   15 * time.Minute,
		Port:            "8080",
		LogLevel:        "info",
	}
}

var validate = validator.New()

// Load builds the configuration: defaults, then the optional YAML file at
// path, then environment variables (including a .env file), then validation.
// A missing file at path is not an error.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return fc.apply(cfg)
}

// fileConfig holds durations as strings so YAML can use "48h" notation.
type fileConfig struct {
	OpenWeatherAPIKey   *string  `yaml:"openweather_api_key"`
	HistoryFile         *string  `yaml:"history_file"`
	Retention           *string  `yaml:"retention"`
	ResetCorruptHistory *bool    `yaml:"reset_corrupt_history"`
	Units               *string  `yaml:"units"`
	HTTPTimeout         *string  `yaml:"http_timeout"`
	PruneInterval       *string  `yaml:"prune_interval"`
	FetchInterval       *string  `yaml:"fetch_interval"`
	Cities              []string `yaml:"cities"`
	Port                *string  `yaml:"port"`
	LogLevel            *string  `yaml:"log_level"`
}

func (fc fileConfig) apply(cfg *AppConfig) error {
	if fc.OpenWeatherAPIKey != nil {
		cfg.OpenWeatherAPIKey = *fc.OpenWeatherAPIKey
	}
	if fc.HistoryFile != nil {
		cfg.HistoryFile = *fc.HistoryFile
	}
	if fc.ResetCorruptHistory != nil {
		cfg.ResetCorruptHistory = *fc.ResetCorruptHistory
	}
	if fc.Units != nil {
		cfg.Units = weather.Units(*fc.Units)
	}
	if fc.Cities != nil {
		cfg.Cities = trimAll(fc.Cities)
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(*fc.LogLevel)
	}

	durations := []struct {
		key string
		val *string
		dst *time.Duration
	}{
		{"retention", fc.Retention, &cfg.RetentionWindow},
		{"http_timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"prune_interval", fc.PruneInterval, &cfg.PruneInterval},
		{"fetch_interval", fc.FetchInterval, &cfg.FetchInterval},
	}
	for _, d := range durations {
		if d.val == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.OpenWeatherAPIKey = v
	}
	cfg.HistoryFile = getenvDefault("WEATHER_HISTORY_FILE", cfg.HistoryFile)
	cfg.Units = weather.Units(getenvDefault("WEATHER_UNITS", string(cfg.Units)))
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", cfg.LogLevel))
	cfg.ResetCorruptHistory = getenvBool("RESET_CORRUPT_HISTORY", cfg.ResetCorruptHistory)

	if v := os.Getenv("WEATHER_CITIES"); v != "" {
		cfg.Cities = trimAll(strings.Split(v, ","))
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HISTORY_RETENTION", &cfg.RetentionWindow},
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"PRUNE_INTERVAL", &cfg.PruneInterval},
		{"FETCH_INTERVAL", &cfg.FetchInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

// SlogLevel maps LogLevel to a slog level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/i474232898/weather-history/internal/config"
	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "weather-history",
	Short: "Fetch weather forecasts and keep a 48 hour history of them",
	Long: `weather-history fetches forecasts from OpenWeatherMap and records every
fetched forecast in a local JSON history file. Records older than the
retention window (48 hours by default) are pruned before each fetch.

Configuration comes from an optional YAML file, a .env file and the
environment (OPENWEATHER_API_KEY, WEATHER_HISTORY_FILE, HISTORY_RETENTION, ...).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "weather-history.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app holds the components shared by the subcommands.
type app struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	history *store.FileStore
	service *weather.Service
}

// setup loads configuration and wires the store and service. reg receives the
// store metrics; nil leaves them unregistered.
func setup(reg prometheus.Registerer) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	history := store.NewFileStore(cfg.HistoryFile,
		store.WithRetention(store.NewRetentionPolicy(cfg.RetentionWindow)),
		store.WithLogger(logger),
		store.WithMetrics(store.NewMetrics(reg)),
	)

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	service := weather.NewService(
		history,
		providers.NewOpenWeatherForecast(httpClient, cfg.OpenWeatherAPIKey),
		providers.NewIPInfoLocator(httpClient),
		weather.ServiceOptions{
			ResetCorruptHistory: cfg.ResetCorruptHistory,
			Logger:              logger,
		},
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		history: history,
		service: service,
	}, nil
}

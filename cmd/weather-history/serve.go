package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-history/internal/api/http"
	"github.com/i474232898/weather-history/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the history over HTTP and prune it on a schedule",
	Long: `Start the HTTP API and a scheduler that prunes the history every
PRUNE_INTERVAL. When WEATHER_CITIES is set, their forecasts are fetched and
recorded every FETCH_INTERVAL.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/v1/history?city=&since=
  POST /api/v1/history/prune
  GET  /api/v1/weather/forecast?city=&units=`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	// Scheduler that periodically prunes and, optionally, fetches.
	sched := scheduler.New(scheduler.Config{
		PruneInterval: a.cfg.PruneInterval,
		FetchInterval: a.cfg.FetchInterval,
		Cities:        a.cfg.Cities,
		Units:         a.cfg.Units,
	}, a.service, a.logger)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-history",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          40 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-history",
			"history": a.history.Path(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, a.service, a.cfg.Units)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "port", a.cfg.Port)
		errCh <- app.Listen(":" + a.cfg.Port)
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("error during shutdown", "error", err)
	}
	return nil
}

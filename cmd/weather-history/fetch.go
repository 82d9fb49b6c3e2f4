package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-history/internal/weather"
)

var fetchFlags struct {
	units string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [city]",
	Short: "Prune expired history, fetch a forecast and record it",
	Long: `Prune records older than the retention window, then fetch the forecast
for city and append it to the history file. Without a city the location is
detected from the public IP address.

A history file that cannot be read or written is reported but does not stop
the forecast from being shown.

Examples:
  weather-history fetch Paris
  weather-history fetch "New York" --units imperial
  weather-history fetch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchFlags.units, "units", "u", "", "units: metric, imperial or standard (default from config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := setup(nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var city string
	if len(args) == 1 {
		city = args[0]
	}
	units := weather.Units(fetchFlags.units)
	if units == "" {
		units = a.cfg.Units
	}

	report, err := a.service.Run(ctx, city, units)
	if err != nil {
		return err
	}

	if report.HistoryErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: forecast not saved to history: %v\n", report.HistoryErr)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(w io.Writer, report weather.Report) {
	if report.Detected {
		fmt.Fprintf(w, "Auto-detected location: %s\n", report.City)
	}
	if len(report.Days) == 0 {
		fmt.Fprintf(w, "No forecast entries for %s\n", report.City)
		return
	}
	for _, day := range report.Days {
		fmt.Fprintf(w, "Date: %s, Avg: %.2f, Min: %.2f, Max: %.2f\n", day.Date, day.Avg, day.Min, day.Max)
	}
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-history/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print records as other processes add them",
	Long: `Watch the history file and print every record appended by other
weather-history processes until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(nil)
		if err != nil {
			return err
		}

		seen := 0
		if current, err := a.history.Load(); err == nil {
			seen = len(current)
		} else {
			a.logger.Warn("could not read current history", "error", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return a.history.Watch(ctx, func(log store.Log) {
			if len(log) == seen {
				return
			}
			if len(log) < seen {
				fmt.Fprintf(out, "History rewritten: %d record(s)\n", len(log))
				seen = len(log)
				return
			}
			printRecords(out, log[seen:])
			seen = len(log)
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

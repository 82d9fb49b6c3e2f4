package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-history/internal/store"
)

var listFlags struct {
	city   string
	asJSON bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recorded forecasts",
	Long: `Print the records in the history file, oldest first.

Examples:
  weather-history list
  weather-history list --city Paris
  weather-history list --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(nil)
		if err != nil {
			return err
		}

		records, err := a.service.History(listFlags.city)
		if err != nil {
			return err
		}

		if listFlags.asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		printRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listFlags.city, "city", "", "only records for this city (exact match)")
	listCmd.Flags().BoolVar(&listFlags.asJSON, "json", false, "print records as JSON")
}

func printRecords(w io.Writer, records store.Log) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No history records")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %-20s  %d bytes\n", formatTimestamp(r.Timestamp), r.City, len(r.Data))
	}
}

func formatTimestamp(ts uint64) string {
	if ts > uint64(1<<62) {
		return fmt.Sprintf("%d", ts)
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

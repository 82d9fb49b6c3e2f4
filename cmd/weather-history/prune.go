package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove history records older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(nil)
		if err != nil {
			return err
		}

		res, err := a.service.Prune(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s) older than %s from %s, %d remaining\n",
			res.Removed, a.history.Retention().Window, a.history.Path(), res.Remaining)
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move the history file aside and start an empty history",
	Long: `Rename the history file to "<file>.corrupt-<unix time>" so that the next
fetch starts a new history. Use this when the history file can no longer be
parsed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(nil)
		if err != nil {
			return err
		}

		dest, err := a.history.Archive()
		if err != nil {
			return err
		}
		if dest == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No history file at %s\n", a.history.Path())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "History archived to %s\n", dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(archiveCmd)
}

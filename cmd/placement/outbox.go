package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var outboxLimit int

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect queued notifications",
}

var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications waiting for the mailer",
	Long:  "Lists unsent notifications written by the outbox notifier (notify.mode = outbox), oldest first.",
	RunE:  runOutboxList,
}

func init() {
	outboxListCmd.Flags().IntVar(&outboxLimit, "limit", 50, "Maximum number of notifications to list")
	outboxCmd.AddCommand(outboxListCmd)
	rootCmd.AddCommand(outboxCmd)
}

func runOutboxList(cmd *cobra.Command, _ []string) error {
	if outboxLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.db.ListPendingNotifications(cmd.Context(), outboxLimit)
	if err != nil {
		return err
	}
	a.printer.PrintOutbox(entries)
	return nil
}

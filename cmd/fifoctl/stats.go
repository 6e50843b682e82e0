package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	statsSessionID  string
	statsLogEntries int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print queue and conflict counters for a session",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsSessionID, "session", "", "session id (required)")
	statsCmd.Flags().IntVar(&statsLogEntries, "log-entries", 0, "also print the per-change log lines of this many recent flushes, newest first")
	_ = statsCmd.MarkFlagRequired("session")
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, db, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	stats, err := svc.Stats(ctx, statsSessionID)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session:            %s\n", statsSessionID)
	fmt.Fprintf(out, "total changes:      %s\n", humanize.Comma(int64(stats.TotalChanges)))
	fmt.Fprintf(out, "processed changes:  %s\n", humanize.Comma(int64(stats.ProcessedChanges)))
	fmt.Fprintf(out, "pending changes:    %s\n", humanize.Comma(int64(stats.PendingChanges)))
	fmt.Fprintf(out, "total conflicts:    %s\n", humanize.Comma(int64(stats.TotalConflicts)))
	fmt.Fprintf(out, "resolved conflicts: %s\n", humanize.Comma(int64(stats.ResolvedConflicts)))

	if statsLogEntries <= 0 {
		return nil
	}
	entries, err := svc.AuditLog(ctx, statsSessionID, statsLogEntries)
	if err != nil {
		return fmt.Errorf("reading audit log: %w", err)
	}
	for _, entry := range entries {
		for _, d := range entry.PerChange {
			fmt.Fprintf(out, "FIFO: step %d, %s %s (%s)\n", entry.StepNumber, d.Disposition, d.FieldPath, d.Reason)
		}
	}
	return nil
}

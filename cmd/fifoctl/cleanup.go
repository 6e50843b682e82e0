package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cleanupOlderThanDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete processed changes and audit entries older than a retention window",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupOlderThanDays, "older-than-days", 0, "retention window in days (defaults to the configured audit.retention_days)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	svc, db, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	retentionDays := cleanupOlderThanDays
	if retentionDays <= 0 {
		retentionDays, err = defaultRetentionDays()
		if err != nil {
			return err
		}
	}

	changesRemoved, auditRemoved, err := svc.Cleanup(context.Background(), retentionDays)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %s changes, %s audit entries older than %d days\n",
		humanize.Comma(int64(changesRemoved)), humanize.Comma(int64(auditRemoved)), retentionDays)
	return nil
}

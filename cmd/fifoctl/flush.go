package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/fifoguard/internal/domain/change"
)

var (
	flushSessionID string
	flushStep      int
	flushImmediate bool
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Drain pending changes for a session step and print the final field values",
	RunE:  runFlush,
}

func init() {
	flushCmd.Flags().StringVar(&flushSessionID, "session", "", "session id (required)")
	flushCmd.Flags().IntVar(&flushStep, "step", 0, "step number (required)")
	flushCmd.Flags().BoolVar(&flushImmediate, "immediate", false, "request this flush run ahead of any coalescing scheduler")
	_ = flushCmd.MarkFlagRequired("session")
	_ = flushCmd.MarkFlagRequired("step")
}

func runFlush(cmd *cobra.Command, args []string) error {
	svc, db, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := svc.FlushStep(context.Background(), flushSessionID, flushStep, change.FlushOptions{Immediate: flushImmediate})
	if err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.FinalValues)
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	conflictsSessionID string
	conflictsStep      int
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List open conflicts for a session",
	RunE:  runConflicts,
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsSessionID, "session", "", "session id (required)")
	conflictsCmd.Flags().IntVar(&conflictsStep, "step", 0, "restrict to one step number (0 means every step)")
	_ = conflictsCmd.MarkFlagRequired("session")
}

func runConflicts(cmd *cobra.Command, args []string) error {
	svc, db, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	var step *int
	if conflictsStep > 0 {
		step = &conflictsStep
	}

	conflicts, err := svc.GetConflicts(context.Background(), conflictsSessionID, step)
	if err != nil {
		return fmt.Errorf("listing conflicts failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(conflicts) == 0 {
		fmt.Fprintln(out, "no open conflicts")
		return nil
	}
	for _, c := range conflicts {
		fmt.Fprintf(out, "%s  step %d  %s  strategy=%s  members=%d\n",
			c.ConflictID, c.StepNumber, c.FieldPath, c.ResolutionStrategy, len(c.ConflictingChanges))
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/fifoguard/internal/domain/change"
)

var (
	resolveSessionID  string
	resolveStep       int
	resolveFieldPath  string
	resolveStrategy   string
	resolveBy         string
	resolveFinalValue string
)

var resolveManualCmd = &cobra.Command{
	Use:   "resolve-manual",
	Short: "Resolve a conflict left open under the manual strategy",
	RunE:  runResolveManual,
}

func init() {
	resolveManualCmd.Flags().StringVar(&resolveSessionID, "session", "", "session id (required)")
	resolveManualCmd.Flags().IntVar(&resolveStep, "step", 0, "step number (required)")
	resolveManualCmd.Flags().StringVar(&resolveFieldPath, "field", "", "dot-path field name (required)")
	resolveManualCmd.Flags().StringVar(&resolveStrategy, "strategy", string(change.StrategyLatestWins), "strategy to apply if --final-value is omitted")
	resolveManualCmd.Flags().StringVar(&resolveBy, "resolved-by", "", "operator identifier recorded on the conflict (required)")
	resolveManualCmd.Flags().StringVar(&resolveFinalValue, "final-value", "", "JSON-encoded value to apply directly, bypassing the strategy")
	_ = resolveManualCmd.MarkFlagRequired("session")
	_ = resolveManualCmd.MarkFlagRequired("step")
	_ = resolveManualCmd.MarkFlagRequired("field")
	_ = resolveManualCmd.MarkFlagRequired("resolved-by")
}

func runResolveManual(cmd *cobra.Command, args []string) error {
	svc, db, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	req := change.ResolveManualRequest{
		SessionID:  resolveSessionID,
		StepNumber: resolveStep,
		FieldPath:  resolveFieldPath,
		Strategy:   change.Strategy(resolveStrategy),
		ResolvedBy: resolveBy,
	}

	if resolveFinalValue != "" {
		var value any
		if err := json.Unmarshal([]byte(resolveFinalValue), &value); err != nil {
			return fmt.Errorf("parsing --final-value: %w", err)
		}
		req.FinalValue = &value
	}

	if _, err := svc.ResolveManual(context.Background(), req); err != nil {
		return fmt.Errorf("resolve-manual failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "conflict resolved for %s step %d field %q\n", resolveSessionID, resolveStep, resolveFieldPath)
	return nil
}

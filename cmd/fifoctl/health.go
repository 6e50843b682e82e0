package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpggio/fifoguard/internal/sqlite"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report store reachability and schema readiness",
	RunE:  runHealth,
}

type healthReport struct {
	CoreReady      bool `json:"core_ready"`
	StoreReachable bool `json:"store_reachable"`
	IndexesPresent bool `json:"indexes_present"`
}

// runHealth never returns a non-nil error for a degraded store: the
// report itself carries the failure, and the exit code (0/1/2) is how
// an operator's monitoring distinguishes ok/degraded/unavailable.
func runHealth(cmd *cobra.Command, args []string) error {
	report, code := checkHealth()
	return emitHealth(cmd, report, code)
}

// checkHealth opens the configured store and assembles the report
// openService/db.Ping/requiredTablesPresent feed into, without touching
// the process exit code — split out of runHealth so tests can assert on
// the report and code directly instead of forking a process.
func checkHealth() (healthReport, int) {
	report := healthReport{CoreReady: true}

	_, db, err := openService()
	if err != nil {
		return report, 2
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return report, 2
	}
	report.StoreReachable = true

	if requiredTablesPresent(db) {
		report.IndexesPresent = true
	}

	if report.StoreReachable && report.IndexesPresent {
		return report, 0
	}
	return report, 1
}

var requiredTables = []string{
	"field_change_queue", "field_conflicts", "conflict_members",
	"workflow_steps", "fifo_processing_logs",
}

func requiredTablesPresent(db *sqlite.DB) bool {
	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			return false
		}
	}
	return true
}

func emitHealth(cmd *cobra.Command, report healthReport, code int) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
	return nil
}

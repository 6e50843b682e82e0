package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpggio/fifoguard/internal/config"
	"github.com/rpggio/fifoguard/internal/domain/change"
	"github.com/rpggio/fifoguard/internal/logging"
	"github.com/rpggio/fifoguard/internal/repository"
	"github.com/rpggio/fifoguard/internal/sqlite"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "fifoctl",
	Short: "Operate a fifoguard field-change store",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a fifoguard config file (overrides FIFOGUARD_CONFIG_PATH)")
	rootCmd.AddCommand(healthCmd, cleanupCmd, flushCmd, resolveManualCmd, statsCmd, conflictsCmd)
}

// openService loads config, opens the SQLite store, and wires a
// *change.Service against it. Callers own closing the returned DB.
func openService() (*change.Service, *sqlite.DB, error) {
	if cfgPath != "" {
		os.Setenv("FIFOGUARD_CONFIG_PATH", cfgPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	// Wiring code references the repository package's aggregated store
	// contracts rather than internal/domain/change's directly, so a
	// future alternate store backend only has to satisfy these.
	var (
		changes   repository.ChangeRepository  = sqlite.NewChangeStore(db)
		conflicts repository.ConflictRepository = sqlite.NewConflictStore(db)
		docs      repository.DocumentRepository = sqlite.NewDocumentStore(db)
		audit     repository.AuditRepository    = sqlite.NewAuditStore(db)
	)

	svc := change.NewService(changes, conflicts, docs, audit, cfg.Audit.DefaultStrategy, logger)
	return svc, db, nil
}

// defaultRetentionDays reads audit.retention_days from config without
// opening a store, for commands that need it as a flag default.
func defaultRetentionDays() (int, error) {
	if cfgPath != "" {
		os.Setenv("FIFOGUARD_CONFIG_PATH", cfgPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("loading config: %w", err)
	}
	return cfg.Audit.RetentionDays, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soaringjerry/MoodMetrics/internal/config"
	"github.com/soaringjerry/MoodMetrics/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		if cfg.Database.Driver != "sqlite" {
			return fmt.Errorf("migrate needs the sqlite driver, got %q", cfg.Database.Driver)
		}
		sqlDB, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return db.RunMigrations(cmd.Context(), sqlDB, cfg.Database.MigrationsDir, log)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and the default survey templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		cfg.Database.Seed = false
		store, closeStore, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()
		return seed(cmd.Context(), store, cfg, log)
	},
}

var importPath string

var importCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Import a legacy responses.json log into the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		path := importPath
		if path == "" {
			path = cfg.Database.LegacyResponses
		}
		if path == "" {
			return errors.New("no legacy file given")
		}
		cfg.Database.LegacyResponses = ""
		store, closeStore, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()
		stats, err := db.ImportLegacyResponses(cmd.Context(), store, path, log)
		if err != nil {
			return err
		}
		cmd.Printf("imported %d responses, skipped %d\n", stats.Imported, stats.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "Legacy responses.json (default: database.legacy_responses)")
}

func seed(ctx context.Context, store db.Store, cfg *config.Config, log *zap.Logger) error {
	return db.Seed(ctx, store, db.SeedOptions{
		AdminEmail:    cfg.Auth.AdminEmail,
		AdminPassword: cfg.Auth.AdminPassword,
		Log:           log.Named("seed"),
	})
}

// openStore opens the configured store with migrations applied. A fresh
// SQLite file gets the legacy response log imported once, mirroring the old
// JSON-file deployment. The store is seeded when database.seed is set.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (db.Store, func(), error) {
	var (
		store   db.Store
		closeFn = func() {}
		fresh   bool
	)
	switch cfg.Database.Driver {
	case "memory":
		store = db.NewMemoryStore()
		fresh = true
	default:
		if _, err := os.Stat(cfg.Database.Path); errors.Is(err, os.ErrNotExist) {
			fresh = true
		} else if err != nil {
			return nil, nil, fmt.Errorf("check sqlite file: %w", err)
		}
		sqlDB, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() {
			if err := sqlDB.Close(); err != nil {
				log.Warn("failed to close sqlite db", zap.Error(err))
			}
		}
		if err := db.RunMigrations(ctx, sqlDB, cfg.Database.MigrationsDir, log.Named("migrate")); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		s, err := db.NewSQLiteStore(sqlDB)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		store = s
	}

	if cfg.Database.Seed {
		if err := seed(ctx, store, cfg, log); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	if fresh && cfg.Database.LegacyResponses != "" {
		log.Info("First run detected, importing legacy responses", zap.String("path", cfg.Database.LegacyResponses))
		if _, err := db.ImportLegacyResponses(ctx, store, cfg.Database.LegacyResponses, log); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("import legacy responses: %w", err)
		}
	}
	return store, closeFn, nil
}

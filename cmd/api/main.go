package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BruksfildServices01/medease/internal/app"
	"github.com/BruksfildServices01/medease/internal/config"
	dbpkg "github.com/BruksfildServices01/medease/internal/db"
	"github.com/BruksfildServices01/medease/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medease",
		Short: "MedEase appointment booking server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			logger := logging.New(cfg.AppEnv)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the selfhosted backend schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			logger := logging.New(cfg.AppEnv)

			if cfg.DBUrl == "" {
				return fmt.Errorf("DATABASE_URL is required to migrate")
			}
			db, err := dbpkg.Open(cfg.DBUrl)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := dbpkg.Migrate(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

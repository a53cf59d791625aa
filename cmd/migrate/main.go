package main

import (
	"context"
	"fmt"
	"os"

	"excelinsights/internal/config"
	"excelinsights/internal/logger"
	"excelinsights/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	var databaseURL string

	rootCmd := &cobra.Command{
		Use:   "excelinsights-migrate",
		Short: "Apply the upload history schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if databaseURL == "" {
				databaseURL = cfg.Database.URL
			}
			if databaseURL == "" {
				return fmt.Errorf("no database configured: set DATABASE_URL or --database-url")
			}

			log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := sqlx.ConnectContext(cmd.Context(), "postgres", databaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			runner := migration.NewRunner(log)
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Printf("schema at version %s\n", runner.Version())
			return nil
		},
	}
	rootCmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection URL (defaults to DATABASE_URL)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

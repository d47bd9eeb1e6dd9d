package main

import (
	"errors"

	"github.com/spf13/cobra"

	"worktrust/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("WORKTRUST_DATABASE_URL is not set")
		}
		db, err := openPostgres(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Apply(cmd.Context(), db); err != nil {
			return err
		}
		cmd.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

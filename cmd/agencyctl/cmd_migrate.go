package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := openDB(); err != nil {
			return err
		}
		logger.Info("Database schema is up to date")
		return nil
	},
}

package cmd

import (
	"github.com/spf13/cobra"

	"chat-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := db.Connect(cmd.Context(), dbOptions(cfg))
		if err != nil {
			return err
		}
		defer database.Close()
		return db.Migrate(cmd.Context(), database, log)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

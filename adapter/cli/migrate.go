package cli

import (
	"fmt"

	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := RequireApp(cmd, "Migrating")
		if app == nil {
			return nil
		}
		applied, err := migrations.Run(cmd.Context(), app.DB, logger)
		if err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

package cli

import (
	"fmt"

	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the backing services",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := RequireApp(cmd, "Health checking")
		if app == nil {
			return nil
		}
		health := app.Health.GetOverallHealth(cmd.Context())
		if err := PrintJSON(cmd.OutOrStdout(), health); err != nil {
			return err
		}
		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("services unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

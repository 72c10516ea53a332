package application

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/applications/application/queries"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [application-id]",
	Short: "Show a subscription application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Application lookup")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("application id", args[0])
		if err != nil {
			return err
		}

		dto, err := app.GetApplicationHandler.Handle(cmd.Context(), queries.GetApplicationQuery{ID: id})
		if err != nil {
			return fmt.Errorf("failed to get application: %w", err)
		}
		return cli.PrintJSON(cmd.OutOrStdout(), dto)
	},
}

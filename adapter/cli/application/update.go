package application

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

var (
	updateFile       string
	updatePrivileged bool
)

var updateCmd = &cobra.Command{
	Use:   "update [application-id]",
	Short: "Amend a subscription application",
	Long: `Amend an application still open for changes.

The document may carry "profile", "vehicles" and "contract". A vehicle list
replaces the current one; an absent list keeps it. Applications under review
can only be amended with --privileged.

Examples:
  covera application update 6f1c... --file amendment.json
  covera application update 6f1c... --file amendment.json --privileged`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Application update")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("application id", args[0])
		if err != nil {
			return err
		}

		var payload updatePayload
		if err := security.ReadJSONFile(updateFile, &payload); err != nil {
			return err
		}

		if err := app.UpdateApplicationHandler.Handle(cmd.Context(), payload.command(id, updatePrivileged)); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated application: %s\n", id)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "path to the amendment JSON document")
	updateCmd.Flags().BoolVar(&updatePrivileged, "privileged", false, "allow updates while the application is under review")
	_ = updateCmd.MarkFlagRequired("file")
}

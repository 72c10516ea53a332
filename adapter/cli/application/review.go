package application

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/applications/application/commands"
	"github.com/spf13/cobra"
)

var reviewComment string

var reviewCmd = &cobra.Command{
	Use:   "review [application-id]",
	Short: "Start reviewing an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Application review")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("application id", args[0])
		if err != nil {
			return err
		}

		err = app.ReviewApplicationHandler.Handle(cmd.Context(), commands.ReviewApplicationCommand{
			ApplicationID: id,
			Comment:       reviewComment,
		})
		if err != nil {
			return fmt.Errorf("failed to review application: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Application %s is under review\n", id)
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewComment, "comment", "m", "", "comment recorded in the status history")
}

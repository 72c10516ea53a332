package contract

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [contract-id]",
	Short: "Delete a contract and its fleet",
	Long: `Delete a contract together with its vehicles and devices.
Device credentials are revoked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Contract deletion")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("contract id", args[0])
		if err != nil {
			return err
		}

		if err := app.DeleteContractHandler.Handle(cmd.Context(), commands.DeleteContractCommand{ContractID: id}); err != nil {
			return fmt.Errorf("failed to delete contract: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted contract: %s\n", id)
		return nil
	},
}

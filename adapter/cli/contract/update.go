package contract

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	"github.com/spf13/cobra"
)

var (
	updateCustomer string
	updateDocURL   string
)

var updateCmd = &cobra.Command{
	Use:   "update [contract-id]",
	Short: "Reassign a contract or replace its document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Contract update")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("contract id", args[0])
		if err != nil {
			return err
		}

		command := commands.UpdateContractCommand{ContractID: id}
		if command.Customer, err = cli.ParseOptionalID("customer id", updateCustomer); err != nil {
			return err
		}
		if cmd.Flags().Changed("doc") {
			command.ContractDocURL = &updateDocURL
		}

		contract, err := app.UpdateContractHandler.Handle(cmd.Context(), command)
		if err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated contract: %s\n", contract.Ref())
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateCustomer, "customer", "", "new customer id")
	updateCmd.Flags().StringVar(&updateDocURL, "doc", "", "new contract document key")
}

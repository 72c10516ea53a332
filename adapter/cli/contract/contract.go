// Package contract holds the contract commands.
package contract

import (
	"github.com/spf13/cobra"
)

// Cmd is the contract command group
var Cmd = &cobra.Command{
	Use:   "contract",
	Short: "Manage insurance contracts",
	Long:  `Open, amend, cancel and inspect insurance contracts.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(cancelCmd)
	Cmd.AddCommand(paymentInfoCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(listCmd)
}

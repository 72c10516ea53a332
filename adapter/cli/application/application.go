// Package application holds the subscription application commands.
package application

import (
	"github.com/spf13/cobra"
)

// Cmd is the application command group
var Cmd = &cobra.Command{
	Use:     "application",
	Aliases: []string{"app"},
	Short:   "Manage subscription applications",
	Long:    `Submit, review, amend, approve or reject subscription applications.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(reviewCmd)
	Cmd.AddCommand(finalizeCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
}

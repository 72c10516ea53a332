package application

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/applications/application/commands"
	"github.com/felixgeelhaar/covera/internal/applications/domain"
	"github.com/spf13/cobra"
)

var (
	finalizeStatus  string
	finalizeComment string
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize [application-id]",
	Short: "Approve, reject or send back a reviewed application",
	Long: `Close the review of an application.

Statuses:
  PAYMENT_PENDING - approve: opens the contract, registers the vehicles and
                    issues the checkout link sent to the customer
  REJECTED        - reject the application
  TO_AMMEND       - ask the customer for changes

Examples:
  covera application finalize 6f1c... --status PAYMENT_PENDING
  covera application finalize 6f1c... --status TO_AMMEND -m "driver licence unreadable"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Application finalization")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("application id", args[0])
		if err != nil {
			return err
		}
		status, err := domain.ParseStatus(strings.ToUpper(finalizeStatus))
		if err != nil {
			return err
		}

		result, err := app.FinalizeApplicationHandler.Handle(cmd.Context(), commands.FinalizeApplicationCommand{
			ApplicationID: id,
			Status:        status,
			Comment:       finalizeComment,
		})
		if err != nil {
			return fmt.Errorf("failed to finalize application: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Application %s is now %s\n", id, result.Status)
		if result.ContractID != nil {
			fmt.Fprintf(out, "  Contract: %s\n", *result.ContractID)
		}
		if result.CheckoutURL != "" {
			fmt.Fprintf(out, "  Checkout: %s\n", result.CheckoutURL)
		}
		return nil
	},
}

func init() {
	finalizeCmd.Flags().StringVarP(&finalizeStatus, "status", "s", "", "target status (PAYMENT_PENDING, REJECTED, TO_AMMEND)")
	finalizeCmd.Flags().StringVarP(&finalizeComment, "comment", "m", "", "comment recorded in the status history")
	_ = finalizeCmd.MarkFlagRequired("status")
}

package contract

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	"github.com/spf13/cobra"
)

var cancelTarget string

var cancelCmd = &cobra.Command{
	Use:   "cancel [contract-id]",
	Short: "Cancel a contract",
	Long: `Cancel a contract and its gateway subscription.

Targets:
  CANCELED              - regular cancellation (default)
  PAYMENT_RENEWAL_ERROR - cancellation after a failed renewal

The customer is notified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Contract cancellation")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("contract id", args[0])
		if err != nil {
			return err
		}
		target, err := domain.ParseStatus(strings.ToUpper(cancelTarget))
		if err != nil {
			return err
		}

		err = app.CancelContractHandler.Handle(cmd.Context(), commands.CancelContractCommand{
			ContractID: id,
			Target:     target,
		})
		if err != nil {
			return fmt.Errorf("failed to cancel contract: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Contract %s is now %s\n", id, target)
		return nil
	},
}

var paymentInfoCmd = &cobra.Command{
	Use:   "payment-info [contract-id]",
	Short: "Issue a checkout to replace the payment method",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Payment information update")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("contract id", args[0])
		if err != nil {
			return err
		}

		result, err := app.UpdatePaymentInformationHandler.Handle(cmd.Context(), commands.UpdatePaymentInformationCommand{
			ContractID: id,
		})
		if err != nil {
			return fmt.Errorf("failed to update payment information: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Checkout: %s\n", result.CheckoutURL)
		return nil
	},
}

func init() {
	cancelCmd.Flags().StringVar(&cancelTarget, "target", string(domain.StatusCanceled), "cancellation status")
}

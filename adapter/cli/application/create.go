package application

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

var createFile string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a subscription application",
	Long: `Submit a subscription application from a JSON document.

The document names the customer, an optional profile update, the vehicles
to insure and the contract descriptor:

  {
    "customer": "6f1c...",
    "profile": {"contact": {"phoneNumber": "+33600000000"}},
    "vehicles": [{"vin": "VF1AG000000000001", "brand": "Renault", ...}],
    "contract": {"contractDocURL": "contract/contract/1.pdf", "ecommerceProduct": "prod_1"}
  }

Examples:
  covera application create --file application.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Application submission")
		if app == nil {
			return nil
		}

		var payload createPayload
		if err := security.ReadJSONFile(createFile, &payload); err != nil {
			return err
		}

		result, err := app.CreateApplicationHandler.Handle(cmd.Context(), payload.command())
		if err != nil {
			return fmt.Errorf("failed to submit application: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Submitted application: %s\n", result.Ref)
		fmt.Fprintf(out, "  ID: %s\n", result.ApplicationID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "path to the application JSON document")
	_ = createCmd.MarkFlagRequired("file")
}

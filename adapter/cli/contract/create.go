package contract

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/covera/adapter/cli"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	"github.com/spf13/cobra"
)

var (
	createCustomer string
	createProduct  string
	createDocURL   string
	createStatus   string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a contract directly",
	Long: `Open a contract for a customer without going through an application.

The product must exist in the payment gateway catalogue. Contracts start
INACTIVE unless --status says otherwise.

Examples:
  covera contract create --customer 6f1c... --product prod_1
  covera contract create --customer 6f1c... --product prod_1 --doc contract/contract/1.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Contract creation")
		if app == nil {
			return nil
		}

		customer, err := cli.ParseID("customer id", createCustomer)
		if err != nil {
			return err
		}

		command := commands.CreateContractCommand{
			Customer:       customer,
			Product:        createProduct,
			Gateway:        billing.DefaultGateway,
			ContractDocURL: createDocURL,
		}
		if createStatus != "" {
			status, err := domain.ParseStatus(strings.ToUpper(createStatus))
			if err != nil {
				return err
			}
			command.Status = status
		}

		result, err := app.CreateContractHandler.Handle(cmd.Context(), command)
		if err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created contract: %s\n", result.Ref)
		fmt.Fprintf(out, "  ID: %s\n", result.ContractID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createCustomer, "customer", "", "customer id")
	createCmd.Flags().StringVar(&createProduct, "product", "", "payment gateway product id")
	createCmd.Flags().StringVar(&createDocURL, "doc", "", "contract document key")
	createCmd.Flags().StringVar(&createStatus, "status", "", "initial status (default INACTIVE)")
	_ = createCmd.MarkFlagRequired("customer")
	_ = createCmd.MarkFlagRequired("product")
}

package contract

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/contracts/application/queries"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [contract-id]",
	Short: "Show a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Contract lookup")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("contract id", args[0])
		if err != nil {
			return err
		}

		dto, err := app.GetContractHandler.Handle(cmd.Context(), queries.GetContractQuery{ID: id})
		if err != nil {
			return fmt.Errorf("failed to get contract: %w", err)
		}
		return cli.PrintJSON(cmd.OutOrStdout(), dto)
	},
}

var (
	listStatus   string
	listCustomer string
	listStart    int
	listLimit    int
	listOrder    string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Contract listing")
		if app == nil {
			return nil
		}

		query := queries.ListContractsQuery{
			Page: sharedDomain.Page{Start: listStart, Limit: listLimit},
		}
		if listStatus != "" {
			status, err := domain.ParseStatus(strings.ToUpper(listStatus))
			if err != nil {
				return err
			}
			query.Status = &status
		}
		customer, err := cli.ParseOptionalID("customer id", listCustomer)
		if err != nil {
			return err
		}
		query.Customer = customer
		if listOrder != "" {
			query.Order = sharedDomain.ParseSortOrder(listOrder)
		}

		page, err := app.ListContractsHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list contracts: %w", err)
		}
		return cli.PrintJSON(cmd.OutOrStdout(), page)
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listCustomer, "customer", "", "filter by customer id")
	listCmd.Flags().IntVar(&listStart, "start", 0, "offset of the first result")
	listCmd.Flags().IntVar(&listLimit, "limit", sharedDomain.DefaultPageLimit, "page size")
	listCmd.Flags().StringVar(&listOrder, "order", "", "sort order by creation (asc, desc)")
}

package application

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/applications/application/queries"
	"github.com/felixgeelhaar/covera/internal/applications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/spf13/cobra"
)

var (
	listStatus   string
	listCustomer string
	listStart    int
	listLimit    int
	listSortBy   string
	listOrder    string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List subscription applications",
	Long: `List subscription applications as JSON.

Sort fields: createdAt, updatedAt, ref, status.

Examples:
  covera application list --status REVIEWING
  covera application list --customer 6f1c... --sort ref --order asc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Application listing")
		if app == nil {
			return nil
		}

		query, err := listQuery()
		if err != nil {
			return err
		}

		page, err := app.ListApplicationsHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list applications: %w", err)
		}
		return cli.PrintJSON(cmd.OutOrStdout(), page)
	},
}

func listQuery() (queries.ListApplicationsQuery, error) {
	query := queries.ListApplicationsQuery{
		Page:   sharedDomain.Page{Start: listStart, Limit: listLimit},
		SortBy: domain.ParseSortField(listSortBy),
	}

	if listStatus != "" {
		status, err := domain.ParseStatus(strings.ToUpper(listStatus))
		if err != nil {
			return query, err
		}
		query.Status = &status
	}

	customer, err := cli.ParseOptionalID("customer id", listCustomer)
	if err != nil {
		return query, err
	}
	query.Customer = customer

	if listOrder != "" {
		query.Order = sharedDomain.ParseSortOrder(listOrder)
	}
	return query, nil
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listCustomer, "customer", "", "filter by customer id")
	listCmd.Flags().IntVar(&listStart, "start", 0, "offset of the first result")
	listCmd.Flags().IntVar(&listLimit, "limit", sharedDomain.DefaultPageLimit, "page size")
	listCmd.Flags().StringVar(&listSortBy, "sort", string(domain.SortByCreatedAt), "sort field")
	listCmd.Flags().StringVar(&listOrder, "order", "", "sort order (asc, desc)")
}

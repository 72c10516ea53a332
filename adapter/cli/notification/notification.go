// Package notification lists stored notifications.
package notification

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/notifications/application/queries"
	"github.com/felixgeelhaar/covera/internal/notifications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/spf13/cobra"
)

// Cmd is the notification command group
var Cmd = &cobra.Command{
	Use:     "notification",
	Aliases: []string{"notifications"},
	Short:   "Inspect notifications",
}

var (
	listAudience string
	listReceiver string
	listStart    int
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notifications, newest first",
	Long: `List notifications accessible by an audience (admin, insurer, customer),
optionally only those addressed to one receiver.

Examples:
  covera notification list --audience admin
  covera notification list --receiver 6f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Notification listing")
		if app == nil {
			return nil
		}

		filter, err := listFilter()
		if err != nil {
			return err
		}

		result, err := app.ListNotificationsHandler.Handle(cmd.Context(), queries.ListNotificationsQuery{
			Filter: filter,
			Page:   sharedDomain.Page{Start: listStart, Limit: listLimit},
		})
		if err != nil {
			return fmt.Errorf("failed to list notifications: %w", err)
		}
		return cli.PrintJSON(cmd.OutOrStdout(), result)
	},
}

func listFilter() (domain.ListFilter, error) {
	var filter domain.ListFilter
	if listAudience != "" {
		audience := domain.Audience(strings.ToLower(listAudience))
		if !audience.Valid() {
			return filter, fmt.Errorf("%w: unknown audience %q", sharedDomain.ErrValidation, listAudience)
		}
		filter.Audience = audience
	}
	if listReceiver != "" {
		receiver, err := cli.ParseID("receiver id", listReceiver)
		if err != nil {
			return filter, err
		}
		filter.Receiver = receiver
	}
	return filter, nil
}

func init() {
	listCmd.Flags().StringVar(&listAudience, "audience", "", "audience (admin, insurer, customer)")
	listCmd.Flags().StringVar(&listReceiver, "receiver", "", "receiver customer id")
	listCmd.Flags().IntVar(&listStart, "start", 0, "offset of the first result")
	listCmd.Flags().IntVar(&listLimit, "limit", sharedDomain.DefaultPageLimit, "page size")

	Cmd.AddCommand(listCmd)
}

// Package customer holds the customer commands.
package customer

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/customers/application/commands"
	"github.com/felixgeelhaar/covera/internal/customers/application/queries"
	"github.com/felixgeelhaar/covera/internal/customers/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

// Cmd is the customer command group
var Cmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers",
}

var (
	createAuthUser  string
	createEmail     string
	createFirstName string
	createLastName  string
	createFullName  string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a customer for an identity provider user",
	Long: `Create a customer and register it with the payment gateway.

Creating a customer that already exists for the user returns the existing one.

Examples:
  covera customer create --auth-user kc-123 --email jane@example.com --first-name Jane --last-name Doe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Customer creation")
		if app == nil {
			return nil
		}

		result, err := app.CreateCustomerHandler.Handle(cmd.Context(), commands.CreateCustomerCommand{
			AuthServerUserID: createAuthUser,
			Email:            createEmail,
			FirstName:        createFirstName,
			LastName:         createLastName,
			FullName:         createFullName,
		})
		if err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}

		if result.Created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created customer: %s\n", result.CustomerID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Customer already exists: %s\n", result.CustomerID)
		}
		return nil
	},
}

var (
	updateFile  string
	updateActor string
)

var updateCmd = &cobra.Command{
	Use:   "update [customer-id]",
	Short: "Update a customer profile from a JSON document",
	Long: `Merge a profile document into the customer.

The document may carry "contact", "billing", "identityDocs" and
"paymentDocs". Every referenced document must already be uploaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Customer update")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("customer id", args[0])
		if err != nil {
			return err
		}
		actor := id
		if updateActor != "" {
			if actor, err = cli.ParseID("actor id", updateActor); err != nil {
				return err
			}
		}

		var profile domain.Profile
		if err := security.ReadJSONFile(updateFile, &profile); err != nil {
			return err
		}

		err = app.UpdateCustomerHandler.Handle(cmd.Context(), commands.UpdateCustomerCommand{
			CustomerID: id,
			ActorID:    actor,
			Profile:    profile,
		})
		if err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated customer: %s\n", id)
		return nil
	},
}

var registerGatewayCmd = &cobra.Command{
	Use:   "register-gateway [customer-id]",
	Short: "Register a customer with the payment gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Gateway registration")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("customer id", args[0])
		if err != nil {
			return err
		}

		gatewayID, err := app.RegisterGatewayCustomerHandler.Handle(cmd.Context(), commands.RegisterGatewayCustomerCommand{
			CustomerID: id,
		})
		if err != nil {
			return fmt.Errorf("failed to register customer: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Gateway customer: %s\n", gatewayID)
		return nil
	},
}

var getAuthUser string

var getCmd = &cobra.Command{
	Use:   "get [customer-id]",
	Short: "Show a customer by id or identity provider user",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Customer lookup")
		if app == nil {
			return nil
		}

		query := queries.GetCustomerQuery{AuthServerUserID: getAuthUser}
		switch {
		case len(args) == 1:
			id, err := cli.ParseID("customer id", args[0])
			if err != nil {
				return err
			}
			query.ID = id
		case getAuthUser == "":
			return errors.New("a customer id or --auth-user is required")
		}

		dto, err := app.GetCustomerHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to get customer: %w", err)
		}
		return cli.PrintJSON(cmd.OutOrStdout(), dto)
	},
}

func init() {
	createCmd.Flags().StringVar(&createAuthUser, "auth-user", "", "identity provider user id")
	createCmd.Flags().StringVar(&createEmail, "email", "", "email address")
	createCmd.Flags().StringVar(&createFirstName, "first-name", "", "first name")
	createCmd.Flags().StringVar(&createLastName, "last-name", "", "last name")
	createCmd.Flags().StringVar(&createFullName, "full-name", "", "display name")
	_ = createCmd.MarkFlagRequired("auth-user")
	_ = createCmd.MarkFlagRequired("email")

	updateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "path to the profile JSON document")
	updateCmd.Flags().StringVar(&updateActor, "actor", "", "id recorded as the author of the change (default the customer)")
	_ = updateCmd.MarkFlagRequired("file")

	getCmd.Flags().StringVar(&getAuthUser, "auth-user", "", "identity provider user id")

	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(registerGatewayCmd)
	Cmd.AddCommand(getCmd)
}

package cli

import (
	"fmt"

	internalApp "github.com/felixgeelhaar/covera/internal/app"
	applicationCommands "github.com/felixgeelhaar/covera/internal/applications/application/commands"
	applicationQueries "github.com/felixgeelhaar/covera/internal/applications/application/queries"
	applicationSubs "github.com/felixgeelhaar/covera/internal/applications/application/subscribers"
	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	contractQueries "github.com/felixgeelhaar/covera/internal/contracts/application/queries"
	contractWorkers "github.com/felixgeelhaar/covera/internal/contracts/application/workers"
	customerCommands "github.com/felixgeelhaar/covera/internal/customers/application/commands"
	customerQueries "github.com/felixgeelhaar/covera/internal/customers/application/queries"
	notificationQueries "github.com/felixgeelhaar/covera/internal/notifications/application/queries"
	provisioningApp "github.com/felixgeelhaar/covera/internal/provisioning/application"
	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// App holds the CLI application dependencies.
type App struct {
	DB     *pgxpool.Pool
	Health *observability.HealthRegistry

	// Application Handlers
	CreateApplicationHandler   *applicationCommands.CreateApplicationHandler
	UpdateApplicationHandler   *applicationCommands.UpdateApplicationHandler
	ReviewApplicationHandler   *applicationCommands.ReviewApplicationHandler
	FinalizeApplicationHandler *applicationCommands.FinalizeApplicationHandler
	GetApplicationHandler      *applicationQueries.GetApplicationHandler
	ListApplicationsHandler    *applicationQueries.ListApplicationsHandler

	// Contract Handlers
	CreateContractHandler           *contractCommands.CreateContractHandler
	UpdateContractHandler           *contractCommands.UpdateContractHandler
	CancelContractHandler           *contractCommands.CancelContractHandler
	UpdatePaymentInformationHandler *contractCommands.UpdatePaymentInformationHandler
	DeleteContractHandler           *contractCommands.DeleteContractHandler
	GetContractHandler              *contractQueries.GetContractHandler
	ListContractsHandler            *contractQueries.ListContractsHandler

	// Customer Handlers
	CreateCustomerHandler          *customerCommands.CreateCustomerHandler
	UpdateCustomerHandler          *customerCommands.UpdateCustomerHandler
	RegisterGatewayCustomerHandler *customerCommands.RegisterGatewayCustomerHandler
	GetCustomerHandler             *customerQueries.GetCustomerHandler

	// Fleet
	Provisioning *provisioningApp.Service

	// Notifications
	ListNotificationsHandler *notificationQueries.ListNotificationsHandler

	// Workers and event replay
	DiscountJob   *contractWorkers.DiscountJob
	PaymentEvents *applicationSubs.PaymentEventConsumer
}

// NewApp creates the CLI application from a wired container.
func NewApp(c *internalApp.Container) *App {
	return &App{
		DB:                              c.DB,
		Health:                          c.Health,
		CreateApplicationHandler:        c.CreateApplicationHandler,
		UpdateApplicationHandler:        c.UpdateApplicationHandler,
		ReviewApplicationHandler:        c.ReviewApplicationHandler,
		FinalizeApplicationHandler:      c.FinalizeApplicationHandler,
		GetApplicationHandler:           c.GetApplicationHandler,
		ListApplicationsHandler:         c.ListApplicationsHandler,
		CreateContractHandler:           c.CreateContractHandler,
		UpdateContractHandler:           c.UpdateContractHandler,
		CancelContractHandler:           c.CancelContractHandler,
		UpdatePaymentInformationHandler: c.UpdatePaymentInformationHandler,
		DeleteContractHandler:           c.DeleteContractHandler,
		GetContractHandler:              c.GetContractHandler,
		ListContractsHandler:            c.ListContractsHandler,
		CreateCustomerHandler:           c.CreateCustomerHandler,
		UpdateCustomerHandler:           c.UpdateCustomerHandler,
		RegisterGatewayCustomerHandler:  c.RegisterGatewayCustomerHandler,
		GetCustomerHandler:              c.GetCustomerHandler,
		Provisioning:                    c.Provisioning,
		ListNotificationsHandler:        c.ListNotificationsHandler,
		DiscountJob:                     c.DiscountJob,
		PaymentEvents:                   c.PaymentEvents,
	}
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the application, or explains on the command output
// that the command needs the backing services and returns nil.
func RequireApp(cmd *cobra.Command, what string) *App {
	if app != nil {
		return app
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s requires database connection.\n", what)
	fmt.Fprintln(out, "Start services with: docker-compose up -d")
	return nil
}

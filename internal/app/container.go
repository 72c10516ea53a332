package app

import (
	"context"
	"fmt"
	"log/slog"

	applicationCommands "github.com/felixgeelhaar/covera/internal/applications/application/commands"
	applicationQueries "github.com/felixgeelhaar/covera/internal/applications/application/queries"
	applicationSubs "github.com/felixgeelhaar/covera/internal/applications/application/subscribers"
	applicationPersistence "github.com/felixgeelhaar/covera/internal/applications/infrastructure/persistence"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/billing/infrastructure/ecommerce"
	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	contractQueries "github.com/felixgeelhaar/covera/internal/contracts/application/queries"
	contractWorkers "github.com/felixgeelhaar/covera/internal/contracts/application/workers"
	contractPersistence "github.com/felixgeelhaar/covera/internal/contracts/infrastructure/persistence"
	customerCommands "github.com/felixgeelhaar/covera/internal/customers/application/commands"
	customerQueries "github.com/felixgeelhaar/covera/internal/customers/application/queries"
	customerPersistence "github.com/felixgeelhaar/covera/internal/customers/infrastructure/persistence"
	notificationApp "github.com/felixgeelhaar/covera/internal/notifications/application"
	notificationQueries "github.com/felixgeelhaar/covera/internal/notifications/application/queries"
	notificationPersistence "github.com/felixgeelhaar/covera/internal/notifications/infrastructure/persistence"
	provisioningApp "github.com/felixgeelhaar/covera/internal/provisioning/application"
	provisioningSubs "github.com/felixgeelhaar/covera/internal/provisioning/application/subscribers"
	"github.com/felixgeelhaar/covera/internal/provisioning/infrastructure/credentials"
	provisioningPersistence "github.com/felixgeelhaar/covera/internal/provisioning/infrastructure/persistence"
	"github.com/felixgeelhaar/covera/internal/provisioning/infrastructure/storage"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/lock"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	telemetryOpenSearch "github.com/felixgeelhaar/covera/internal/telemetry/infrastructure/opensearch"
	"github.com/felixgeelhaar/covera/pkg/config"
	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DB *pgxpool.Pool

	// Redis
	RedisClient *redis.Client

	// Repositories
	ApplicationRepo  *applicationPersistence.PostgresApplicationRepository
	ContractRepo     *contractPersistence.PostgresContractRepository
	CustomerRepo     *customerPersistence.PostgresCustomerRepository
	VehicleRepo      *provisioningPersistence.PostgresVehicleRepository
	DeviceRepo       *provisioningPersistence.PostgresDeviceRepository
	SessionRepo      *provisioningPersistence.PostgresSessionRepository
	NotificationRepo *notificationPersistence.PostgresNotificationRepository
	OutboxRepo       outbox.Repository

	// Publishers
	EventPublisher eventbus.Publisher
	DeviceCommands eventbus.Publisher

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Adapters
	Gateway   *ecommerce.Client
	Documents *storage.S3DocumentStore
	Telemetry *telemetryOpenSearch.Store
	Locker    lock.Locker

	// Services
	Notifier     *notificationApp.Dispatcher
	Provisioning *provisioningApp.Service
	Sessions     *provisioningApp.SessionTracker

	// Customer Handlers
	CreateCustomerHandler          *customerCommands.CreateCustomerHandler
	UpdateCustomerHandler          *customerCommands.UpdateCustomerHandler
	RegisterGatewayCustomerHandler *customerCommands.RegisterGatewayCustomerHandler
	GetCustomerHandler             *customerQueries.GetCustomerHandler

	// Contract Handlers
	CreateContractHandler           *contractCommands.CreateContractHandler
	UpdateContractHandler           *contractCommands.UpdateContractHandler
	CancelContractHandler           *contractCommands.CancelContractHandler
	HandlePaymentErrorHandler       *contractCommands.HandlePaymentErrorHandler
	UpdatePaymentInformationHandler *contractCommands.UpdatePaymentInformationHandler
	UpdateSubscriptionHandler       *contractCommands.UpdateSubscriptionHandler
	DeleteContractHandler           *contractCommands.DeleteContractHandler
	ContractLifecycle               *contractCommands.Lifecycle
	GetContractHandler              *contractQueries.GetContractHandler
	ListContractsHandler            *contractQueries.ListContractsHandler

	// Application Handlers
	CreateApplicationHandler   *applicationCommands.CreateApplicationHandler
	UpdateApplicationHandler   *applicationCommands.UpdateApplicationHandler
	ReviewApplicationHandler   *applicationCommands.ReviewApplicationHandler
	FinalizeApplicationHandler *applicationCommands.FinalizeApplicationHandler
	SettlePaymentHandler       *applicationCommands.SettlePaymentHandler
	GetApplicationHandler      *applicationQueries.GetApplicationHandler
	ListApplicationsHandler    *applicationQueries.ListApplicationsHandler

	// Notification Handlers
	ListNotificationsHandler *notificationQueries.ListNotificationsHandler

	// Event Consumers
	PaymentEvents *applicationSubs.PaymentEventConsumer
	DeviceEvents  *provisioningSubs.DeviceEventConsumer

	// Workers
	DiscountJob     *contractWorkers.DiscountJob
	OutboxProcessor *outbox.Processor

	// Health
	Health *observability.HealthRegistry

	closers []func()
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if billing.Gateway(cfg.DefaultGateway) != billing.DefaultGateway {
		return nil, fmt.Errorf("unsupported default gateway %q", cfg.DefaultGateway)
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		Health: observability.NewHealthRegistry(),
	}

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c.DB = pool
	c.closers = append(c.closers, pool.Close)
	c.Health.Register("postgres", observability.DependencyChecker("postgres", observability.HealthStatusUnhealthy, pool.Ping))
	logger.Info("connected to database")

	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.connectPublishers(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.connectAdapters(ctx); err != nil {
		c.Close()
		return nil, err
	}

	// Create repositories
	c.ApplicationRepo = applicationPersistence.NewPostgresApplicationRepository(pool)
	c.ContractRepo = contractPersistence.NewPostgresContractRepository(pool)
	c.CustomerRepo = customerPersistence.NewPostgresCustomerRepository(pool)
	c.VehicleRepo = provisioningPersistence.NewPostgresVehicleRepository(pool)
	c.DeviceRepo = provisioningPersistence.NewPostgresDeviceRepository(pool)
	c.SessionRepo = provisioningPersistence.NewPostgresSessionRepository(pool)
	c.NotificationRepo = notificationPersistence.NewPostgresNotificationRepository(pool)
	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	directory := &customerDirectory{customers: c.CustomerRepo}

	// Create services
	c.Notifier = notificationApp.NewDispatcher(c.NotificationRepo, c.EventPublisher, directory, logger)
	c.Provisioning = provisioningApp.NewService(provisioningApp.ServiceDeps{
		Vehicles:   c.VehicleRepo,
		Devices:    c.DeviceRepo,
		Documents:  c.Documents,
		Customers:  directory,
		Contracts:  &contractDirectory{contracts: c.ContractRepo},
		Revoker:    credentials.NewPublisherRevoker(c.EventPublisher),
		OutboxRepo: c.OutboxRepo,
		UnitOfWork: c.UnitOfWork,
		Logger:     logger,
	})
	c.Sessions = provisioningApp.NewSessionTracker(c.SessionRepo)

	c.wireCustomers()
	c.wireContracts()
	c.wireApplications()

	c.ListNotificationsHandler = notificationQueries.NewListNotificationsHandler(c.NotificationRepo)

	c.DeviceEvents = provisioningSubs.NewDeviceEventConsumer(provisioningSubs.DeviceEventDeps{
		Devices:   c.DeviceRepo,
		Vehicles:  c.VehicleRepo,
		Sessions:  c.Sessions,
		EventLog:  c.SessionRepo,
		Telemetry: c.Telemetry,
		Notifier:  c.Notifier,
		Commands:  c.DeviceCommands,
		Logger:    logger,
	})

	c.DiscountJob = contractWorkers.NewDiscountJob(
		c.ContractRepo,
		c.CustomerRepo,
		c.Provisioning,
		c.Telemetry,
		c.Gateway,
		c.Locker,
		cfg.DiscountLockTTL,
		logger,
	)

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval:  cfg.OutboxPollInterval,
		BatchSize:     cfg.OutboxBatchSize,
		MaxRetries:    cfg.OutboxMaxRetries,
		RetentionDays: cfg.OutboxRetentionDays,
	}, logger)

	return c, nil
}

// connectRedis connects the discount job lock. Development falls back to a
// process-local lock when Redis is unreachable.
func (c *Container) connectRedis(ctx context.Context) error {
	c.Locker = lock.NewInMemoryLocker()
	if c.Config.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, discount lock is process local", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, discount lock is process local", "error", err)
		return nil
	}

	c.RedisClient = client
	c.Locker = lock.NewRedisLocker(client)
	c.closers = append(c.closers, func() { _ = client.Close() })
	c.Health.Register("redis", observability.DependencyChecker("redis", observability.HealthStatusDegraded, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))
	c.Logger.Info("connected to Redis")
	return nil
}

func (c *Container) connectPublishers() error {
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		// Fall back to noop publisher in development
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
	} else {
		c.EventPublisher = publisher
		c.closers = append(c.closers, func() { _ = publisher.Close() })
	}

	commands, err := eventbus.NewNATSPublisher(c.Config.NATSURL, "covera-device-commands", c.Logger)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		c.Logger.Warn("NATS not available, device commands are dropped", "error", err)
		c.DeviceCommands = eventbus.NewNoopPublisher(c.Logger)
		return nil
	}
	c.DeviceCommands = commands
	c.closers = append(c.closers, func() { _ = commands.Close() })
	return nil
}

func (c *Container) connectAdapters(ctx context.Context) error {
	cfg := c.Config

	gatewayConfig := ecommerce.DefaultConfig(cfg.EcommercePublicURL, cfg.EcommercePrivateURL)
	gatewayConfig.APIKey = cfg.EcommerceAPIKey
	gatewayConfig.Timeout = cfg.EcommerceTimeout
	gatewayConfig.MaxRetries = cfg.EcommerceMaxRetries
	gatewayConfig.BreakerFailures = convert.IntToUint32Clamped(cfg.EcommerceBreakerFailures)
	gatewayConfig.BreakerTimeout = cfg.EcommerceBreakerTimeout
	c.Gateway = ecommerce.NewClient(gatewayConfig, c.Logger)

	s3Client, err := storage.NewS3Client(ctx, storage.Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3Bucket,
	})
	if err != nil {
		return err
	}
	c.Documents = storage.NewS3DocumentStore(s3Client, cfg.S3Bucket, c.Logger)

	searchConfig := telemetryOpenSearch.Config{
		Addresses:   cfg.OpenSearchAddresses,
		Username:    cfg.OpenSearchUsername,
		Password:    cfg.OpenSearchPassword,
		ReportIndex: cfg.OpenSearchReportIndex,
		MetricIndex: cfg.OpenSearchMetricIndex,
	}
	searchClient, err := telemetryOpenSearch.NewClient(searchConfig)
	if err != nil {
		return err
	}
	c.Telemetry = telemetryOpenSearch.NewStore(searchClient, searchConfig, c.Logger)
	return nil
}

func (c *Container) wireCustomers() {
	c.CreateCustomerHandler = customerCommands.NewCreateCustomerHandler(c.CustomerRepo, c.Gateway, c.OutboxRepo, c.UnitOfWork)
	c.UpdateCustomerHandler = customerCommands.NewUpdateCustomerHandler(c.CustomerRepo, c.Documents, c.OutboxRepo, c.UnitOfWork)
	c.RegisterGatewayCustomerHandler = customerCommands.NewRegisterGatewayCustomerHandler(c.CustomerRepo, c.Gateway, c.OutboxRepo, c.UnitOfWork)
	c.GetCustomerHandler = customerQueries.NewGetCustomerHandler(c.CustomerRepo)
}

func (c *Container) wireContracts() {
	c.CreateContractHandler = contractCommands.NewCreateContractHandler(c.ContractRepo, c.CustomerRepo, c.Gateway, c.Documents, c.OutboxRepo, c.UnitOfWork)
	c.UpdateContractHandler = contractCommands.NewUpdateContractHandler(c.ContractRepo, c.CustomerRepo, c.Documents, c.OutboxRepo, c.UnitOfWork)
	c.CancelContractHandler = contractCommands.NewCancelContractHandler(c.ContractRepo, c.CustomerRepo, c.Gateway, c.OutboxRepo, c.UnitOfWork, c.Logger)
	c.HandlePaymentErrorHandler = contractCommands.NewHandlePaymentErrorHandler(c.ContractRepo, c.CancelContractHandler)
	c.UpdatePaymentInformationHandler = contractCommands.NewUpdatePaymentInformationHandler(c.ContractRepo, c.CustomerRepo, c.Provisioning, c.Gateway, c.OutboxRepo, c.UnitOfWork)
	c.UpdateSubscriptionHandler = contractCommands.NewUpdateSubscriptionHandler(c.ContractRepo, c.OutboxRepo, c.UnitOfWork)
	c.DeleteContractHandler = contractCommands.NewDeleteContractHandler(c.ContractRepo, c.Provisioning, c.OutboxRepo, c.UnitOfWork)
	c.ContractLifecycle = contractCommands.NewLifecycle(
		c.CreateContractHandler,
		contractCommands.NewAttachCheckoutHandler(c.ContractRepo, c.OutboxRepo, c.UnitOfWork),
		contractCommands.NewSettleCheckoutHandler(c.ContractRepo, c.OutboxRepo, c.UnitOfWork),
	)
	c.GetContractHandler = contractQueries.NewGetContractHandler(c.ContractRepo)
	c.ListContractsHandler = contractQueries.NewListContractsHandler(c.ContractRepo)
}

func (c *Container) wireApplications() {
	deps := applicationCommands.Deps{
		Applications: c.ApplicationRepo,
		Customers:    c.CustomerRepo,
		Provisioning: c.Provisioning,
		Notifier:     c.Notifier,
		OutboxRepo:   c.OutboxRepo,
		UnitOfWork:   c.UnitOfWork,
		Logger:       c.Logger,
	}
	c.CreateApplicationHandler = applicationCommands.NewCreateApplicationHandler(deps)
	c.UpdateApplicationHandler = applicationCommands.NewUpdateApplicationHandler(deps)
	c.ReviewApplicationHandler = applicationCommands.NewReviewApplicationHandler(deps)
	c.FinalizeApplicationHandler = applicationCommands.NewFinalizeApplicationHandler(deps, c.ContractLifecycle, c.Gateway)
	c.SettlePaymentHandler = applicationCommands.NewSettlePaymentHandler(deps, c.ContractLifecycle)
	c.GetApplicationHandler = applicationQueries.NewGetApplicationHandler(c.ApplicationRepo)
	c.ListApplicationsHandler = applicationQueries.NewListApplicationsHandler(c.ApplicationRepo)

	c.PaymentEvents = applicationSubs.NewPaymentEventConsumer(applicationSubs.PaymentEventDeps{
		Settle:             c.SettlePaymentHandler,
		UpdateSubscription: c.UpdateSubscriptionHandler,
		CancelContract:     c.CancelContractHandler,
		PaymentError:       c.HandlePaymentErrorHandler,
		Logger:             c.Logger,
	})
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

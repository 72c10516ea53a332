package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	notifications "github.com/felixgeelhaar/covera/internal/notifications/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockApplicationRepo struct {
	mock.Mock
}

func (m *mockApplicationRepo) Save(ctx context.Context, application *domain.Application) error {
	return m.Called(ctx, application).Error(0)
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *mockApplicationRepo) FindByContract(ctx context.Context, contractID uuid.UUID, gateway billing.Gateway) (*domain.Application, error) {
	args := m.Called(ctx, contractID, gateway)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *mockApplicationRepo) LastReference(ctx context.Context) (*string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *mockApplicationRepo) ProposedVINs(ctx context.Context, vins []string, exclude *uuid.UUID) ([]string, error) {
	args := m.Called(ctx, vins, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockApplicationRepo) List(ctx context.Context, filter domain.Filter, page sharedDomain.Page, sort domain.Sort) ([]*domain.Application, int, error) {
	args := m.Called(ctx, filter, page, sort)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Application), args.Int(1), args.Error(2)
}

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) Save(ctx context.Context, customer *customerDomain.Customer) error {
	return m.Called(ctx, customer).Error(0)
}

func (m *mockCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*customerDomain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customerDomain.Customer), args.Error(1)
}

func (m *mockCustomerRepo) FindByAuthServerUserID(ctx context.Context, authServerUserID string) (*customerDomain.Customer, error) {
	args := m.Called(ctx, authServerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customerDomain.Customer), args.Error(1)
}

type mockProvisioning struct {
	mock.Mock
}

func (m *mockProvisioning) DocumentExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvisioning) VINInUse(ctx context.Context, vin string) (bool, error) {
	args := m.Called(ctx, vin)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvisioning) CreateVehicle(ctx context.Context, spec provisioning.VehicleSpec) (uuid.UUID, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockProvisioning) CreateDevice(ctx context.Context, spec provisioning.DeviceSpec) (uuid.UUID, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type mockLifecycle struct {
	mock.Mock
}

func (m *mockLifecycle) Open(ctx context.Context, cmd contractCommands.CreateContractCommand) (*contractCommands.CreateContractResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contractCommands.CreateContractResult), args.Error(1)
}

func (m *mockLifecycle) AttachCheckout(ctx context.Context, contractID uuid.UUID, checkoutURL string) error {
	return m.Called(ctx, contractID, checkoutURL).Error(0)
}

func (m *mockLifecycle) Settle(ctx context.Context, contractID uuid.UUID, outcome contractCommands.CheckoutOutcome) error {
	return m.Called(ctx, contractID, outcome).Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) FindProduct(ctx context.Context, productID string, gateway billing.Gateway) (*billing.Product, error) {
	args := m.Called(ctx, productID, gateway)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Product), args.Error(1)
}

func (m *mockGateway) CreateCustomer(ctx context.Context, email, fullName string, gateway billing.Gateway) (string, error) {
	args := m.Called(ctx, email, fullName, gateway)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateCheckout(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CancelSubscription(ctx context.Context, gatewayCustomerID string, contractID uuid.UUID, gateway billing.Gateway) error {
	return m.Called(ctx, gatewayCustomerID, contractID, gateway).Error(0)
}

func (m *mockGateway) ApplyDiscount(ctx context.Context, gatewayCustomerID string, contractID uuid.UUID, percent decimal.Decimal, gateway billing.Gateway, idempotencyKey string) error {
	return m.Called(ctx, gatewayCustomerID, contractID, percent, gateway, idempotencyKey).Error(0)
}

type recordingNotifier struct {
	requests []notifications.Request
}

func (n *recordingNotifier) Notify(ctx context.Context, req notifications.Request) {
	n.requests = append(n.requests, req)
}

func (n *recordingNotifier) audiences() []notifications.Audience {
	out := make([]notifications.Audience, 0, len(n.requests))
	for _, req := range n.requests {
		out = append(out, req.Audience)
	}
	return out
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error {
	return m.Called(ctx, id, err, nextRetryAt).Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockOutboxRepo) GetFailed(ctx context.Context, maxRetries, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, maxRetries, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	applications *mockApplicationRepo
	customers    *mockCustomerRepo
	provisioning *mockProvisioning
	lifecycle    *mockLifecycle
	gateway      *mockGateway
	notifier     *recordingNotifier
	outboxRepo   *mockOutboxRepo
	uow          *mockUnitOfWork
}

func newFixture() *fixture {
	return &fixture{
		applications: new(mockApplicationRepo),
		customers:    new(mockCustomerRepo),
		provisioning: new(mockProvisioning),
		lifecycle:    new(mockLifecycle),
		gateway:      new(mockGateway),
		notifier:     &recordingNotifier{},
		outboxRepo:   new(mockOutboxRepo),
		uow:          new(mockUnitOfWork),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Applications: f.applications,
		Customers:    f.customers,
		Provisioning: f.provisioning,
		Notifier:     f.notifier,
		OutboxRepo:   f.outboxRepo,
		UnitOfWork:   f.uow,
	}
}

func newTestCustomer(t *testing.T) *customerDomain.Customer {
	t.Helper()
	c, err := customerDomain.NewCustomer("auth-1", "jane@example.com", "Jane", "Doe", "")
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func proposedVehicle(vin string) domain.ProposedVehicle {
	return domain.ProposedVehicle{
		VIN:                           vin,
		Brand:                         "Renault",
		Model:                         "Zoe",
		Year:                          2021,
		OriginalInServiceDate:         time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		DriverLicenceDocURL:           provisioning.DriverLicencePrefix + vin + ".pdf",
		VehicleRegistrationCardDocURL: provisioning.RegistrationCardPrefix + vin + ".pdf",
	}
}

// newTestApplication creates an application for customer and walks it to status.
func newTestApplication(t *testing.T, customer uuid.UUID, status domain.Status, vins ...string) *domain.Application {
	t.Helper()
	vehicles := make([]domain.ProposedVehicle, 0, len(vins))
	for _, vin := range vins {
		vehicles = append(vehicles, proposedVehicle(vin))
	}
	a, _, err := domain.NewApplication(sharedDomain.FirstReference, customer, vehicles, domain.ContractDescriptor{EcommerceProduct: "prod_1"})
	require.NoError(t, err)

	var path []domain.Action
	switch status {
	case domain.StatusPending:
	case domain.StatusReviewing:
		path = []domain.Action{domain.Review()}
	case domain.StatusRejected, domain.StatusToAmend:
		path = []domain.Action{domain.Review(), domain.Finalize(status)}
	case domain.StatusPaymentPending:
		path = []domain.Action{domain.Review(), domain.Finalize(domain.StatusPaymentPending)}
	case domain.StatusPaymentConfirmed:
		path = []domain.Action{domain.Review(), domain.Finalize(domain.StatusPaymentPending), domain.ConfirmPayment()}
	case domain.StatusPaymentCanceled:
		path = []domain.Action{domain.Review(), domain.Finalize(domain.StatusPaymentPending), domain.CancelPayment()}
	}
	for _, action := range path {
		_, err := a.Apply(action, "")
		require.NoError(t, err)
	}
	a.ClearDomainEvents()
	return a
}

func txContext() (context.Context, context.Context) {
	ctx := context.Background()
	return ctx, context.WithValue(ctx, "tx", "transaction")
}

// checkoutMatching matches want with any fresh idempotency key of its contract.
func checkoutMatching(want billing.CheckoutRequest) any {
	return mock.MatchedBy(func(got billing.CheckoutRequest) bool {
		key := got.IdempotencyKey
		got.IdempotencyKey = ""
		return got == want && strings.HasPrefix(key, "checkout:"+want.ContractID.String()+":")
	})
}

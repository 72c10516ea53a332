package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockContractRepo struct {
	mock.Mock
}

func (m *mockContractRepo) Save(ctx context.Context, contract *domain.Contract) error {
	return m.Called(ctx, contract).Error(0)
}

func (m *mockContractRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *mockContractRepo) LastReference(ctx context.Context) (*string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *mockContractRepo) List(ctx context.Context, filter domain.Filter, page sharedDomain.Page, order sharedDomain.SortOrder) ([]*domain.Contract, int, error) {
	args := m.Called(ctx, filter, page, order)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Contract), args.Int(1), args.Error(2)
}

func (m *mockContractRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
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

type mockFleet struct {
	mock.Mock
}

func (m *mockFleet) VehicleVINs(ctx context.Context, contractID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockFleet) DeleteContractFleet(ctx context.Context, contractID uuid.UUID) error {
	return m.Called(ctx, contractID).Error(0)
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

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) DocumentExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
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

func newTestCustomer(t *testing.T, gatewayCustomerID string) *customerDomain.Customer {
	t.Helper()
	c, err := customerDomain.NewCustomer("auth-1", "jane@example.com", "Jane", "Doe", "")
	require.NoError(t, err)
	if gatewayCustomerID != "" {
		require.NoError(t, c.AttachGatewayCustomer(gatewayCustomerID))
	}
	c.ClearDomainEvents()
	return c
}

func newTestContract(t *testing.T, customer uuid.UUID, status domain.Status) *domain.Contract {
	t.Helper()
	c, err := domain.NewContract(domain.Spec{
		Ref:      sharedDomain.FirstReference,
		Customer: customer,
		Product:  "prod_1",
		Gateway:  billing.GatewayStripe,
		Status:   status,
	})
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
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

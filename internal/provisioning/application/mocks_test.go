package application

import (
	"context"
	"strings"
	"time"

	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockVehicleRepo struct {
	mock.Mock
}

func (m *mockVehicleRepo) Save(ctx context.Context, v *domain.Vehicle) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockVehicleRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *mockVehicleRepo) FindByVIN(ctx context.Context, vin string) (*domain.Vehicle, error) {
	args := m.Called(ctx, vin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *mockVehicleRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*domain.Vehicle, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Vehicle), args.Error(1)
}

func (m *mockVehicleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockDeviceRepo struct {
	mock.Mock
}

func (m *mockDeviceRepo) Save(ctx context.Context, d *domain.Device) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockDeviceRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *mockDeviceRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]*domain.Device, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Device), args.Error(1)
}

func (m *mockDeviceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindOpen(ctx context.Context, device uuid.UUID, kind domain.SessionKind) (*domain.Session, error) {
	args := m.Called(ctx, device, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepo) Save(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) DocumentExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) CustomerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockDirectory) ContractExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) Revoke(ctx context.Context, clientID string) error {
	return m.Called(ctx, clientID).Error(0)
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
	vehicles  *mockVehicleRepo
	devices   *mockDeviceRepo
	documents *mockDocuments
	directory *mockDirectory
	revoker   *mockRevoker
	outbox    *mockOutboxRepo
	uow       *mockUnitOfWork
	service   *Service
}

func newFixture() *fixture {
	f := &fixture{
		vehicles:  new(mockVehicleRepo),
		devices:   new(mockDeviceRepo),
		documents: new(mockDocuments),
		directory: new(mockDirectory),
		revoker:   new(mockRevoker),
		outbox:    new(mockOutboxRepo),
		uow:       new(mockUnitOfWork),
	}
	f.service = NewService(ServiceDeps{
		Vehicles:   f.vehicles,
		Devices:    f.devices,
		Documents:  f.documents,
		Customers:  f.directory,
		Contracts:  f.directory,
		Revoker:    f.revoker,
		OutboxRepo: f.outbox,
		UnitOfWork: f.uow,
	})
	f.service.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

func testVehicleSpec() domain.VehicleSpec {
	return domain.VehicleSpec{
		VIN:                           "VF1RFB00X12345678",
		Brand:                         "Renault",
		Model:                         "Clio",
		Year:                          2020,
		RegistrationNumber:            "AB-123-CD",
		OriginalInServiceDate:         time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		ContractSubscriptionKm:        10000,
		DriverLicenceDocURL:           domain.DriverLicencePrefix + "licence.pdf",
		VehicleRegistrationCardDocURL: domain.RegistrationCardPrefix + "card.pdf",
		Contract:                      uuid.New(),
		Customer:                      uuid.New(),
	}
}

func newTestVehicle() *domain.Vehicle {
	v, _ := domain.NewVehicle(testVehicleSpec())
	v.ClearDomainEvents()
	return v
}

func newTestDevice() *domain.Device {
	d, _ := domain.NewDevice(domain.DeviceSpec{SerialNumber: strings.Repeat("S", domain.SerialNumberLength)})
	d.ClearDomainEvents()
	return d
}

package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_CreateVehicle(t *testing.T) {
	ctx := context.Background()
	txCtx := context.WithValue(ctx, "tx", "transaction")

	t.Run("registers a vehicle with a free vin", func(t *testing.T) {
		f := newFixture()
		spec := testVehicleSpec()

		f.vehicles.On("FindByVIN", ctx, spec.VIN).Return(nil, domain.ErrVehicleNotFound)
		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.vehicles.On("Save", txCtx, mock.AnythingOfType("*domain.Vehicle")).Return(nil)
		f.outbox.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		id, err := f.service.CreateVehicle(ctx, spec)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
		f.vehicles.AssertExpectations(t)
		f.outbox.AssertExpectations(t)
	})

	t.Run("vin already registered", func(t *testing.T) {
		f := newFixture()
		spec := testVehicleSpec()
		f.vehicles.On("FindByVIN", ctx, spec.VIN).Return(newTestVehicle(), nil)

		_, err := f.service.CreateVehicle(ctx, spec)

		assert.ErrorIs(t, err, domain.ErrVINInUse)
		assert.ErrorIs(t, err, sharedDomain.ErrConflict)
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("invalid spec never reaches storage", func(t *testing.T) {
		f := newFixture()
		spec := testVehicleSpec()
		spec.Year = 1850

		_, err := f.service.CreateVehicle(ctx, spec)

		assert.ErrorIs(t, err, sharedDomain.ErrValidation)
		f.vehicles.AssertNotCalled(t, "FindByVIN", mock.Anything, mock.Anything)
	})
}

func TestService_RegisterVehicle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	spec := testVehicleSpec()

	f.directory.On("CustomerExists", ctx, spec.Customer).Return(false, nil)
	f.directory.On("ContractExists", ctx, spec.Contract).Return(true, nil)
	f.documents.On("DocumentExists", ctx, spec.DriverLicenceDocURL).Return(false, nil)
	f.documents.On("DocumentExists", ctx, spec.VehicleRegistrationCardDocURL).Return(true, nil)

	_, err := f.service.RegisterVehicle(ctx, spec)

	var verr *sharedDomain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		fmt.Sprintf("customer %s must exists", spec.Customer),
		sharedApplication.MissingDocumentMessage("driverLicenceDocURL"),
	}, verr.Violations)
	f.vehicles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_UpdateVehicle(t *testing.T) {
	ctx := context.Background()
	txCtx := context.WithValue(ctx, "tx", "transaction")

	t.Run("applies the patch", func(t *testing.T) {
		f := newFixture()
		vehicle := newTestVehicle()
		key := domain.RegistrationCardPrefix + "new.pdf"

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.vehicles.On("FindByID", txCtx, vehicle.ID()).Return(vehicle, nil)
		f.documents.On("DocumentExists", txCtx, key).Return(true, nil)
		f.vehicles.On("Save", txCtx, vehicle).Return(nil)
		f.outbox.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err := f.service.UpdateVehicle(ctx, vehicle.ID(), domain.VehiclePatch{VehicleRegistrationCardDocURL: &key})

		require.NoError(t, err)
		assert.Equal(t, key, vehicle.Spec().VehicleRegistrationCardDocURL)
	})

	t.Run("wrong prefix and missing upload are both reported", func(t *testing.T) {
		f := newFixture()
		vehicle := newTestVehicle()
		key := "somewhere/else.pdf"

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.vehicles.On("FindByID", txCtx, vehicle.ID()).Return(vehicle, nil)
		f.documents.On("DocumentExists", txCtx, key).Return(false, nil)
		f.uow.On("Rollback", txCtx).Return(nil)

		err := f.service.UpdateVehicle(ctx, vehicle.ID(), domain.VehiclePatch{DriverLicenceDocURL: &key})

		var verr *sharedDomain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Violations, 2)
		f.vehicles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.uow.AssertExpectations(t)
	})
}

func TestService_DeleteContractFleet(t *testing.T) {
	ctx := context.Background()
	txCtx := context.WithValue(ctx, "tx", "transaction")
	contractID := uuid.New()

	t.Run("removes vehicles and revokes their devices", func(t *testing.T) {
		f := newFixture()
		vehicle := newTestVehicle()
		device := newTestDevice()

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.vehicles.On("ListByContract", txCtx, contractID).Return([]*domain.Vehicle{vehicle}, nil)
		f.devices.On("ListByVehicle", txCtx, vehicle.ID()).Return([]*domain.Device{device}, nil)
		f.revoker.On("Revoke", txCtx, device.ClientID()).Return(nil)
		f.devices.On("Delete", txCtx, device.ID()).Return(nil)
		f.vehicles.On("Delete", txCtx, vehicle.ID()).Return(nil)
		f.outbox.On("SaveBatch", txCtx, mock.Anything).Return(nil).Twice()
		f.uow.On("Commit", txCtx).Return(nil)

		err := f.service.DeleteContractFleet(ctx, contractID)

		require.NoError(t, err)
		f.revoker.AssertExpectations(t)
		f.devices.AssertExpectations(t)
		f.vehicles.AssertExpectations(t)
		f.outbox.AssertExpectations(t)
	})

	t.Run("revocation failure keeps the vehicle", func(t *testing.T) {
		f := newFixture()
		vehicle := newTestVehicle()
		device := newTestDevice()

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.vehicles.On("ListByContract", txCtx, contractID).Return([]*domain.Vehicle{vehicle}, nil)
		f.devices.On("ListByVehicle", txCtx, vehicle.ID()).Return([]*domain.Device{device}, nil)
		f.revoker.On("Revoke", txCtx, device.ClientID()).Return(errors.New("identity provider down"))
		f.uow.On("Rollback", txCtx).Return(nil)

		err := f.service.DeleteContractFleet(ctx, contractID)

		require.Error(t, err)
		f.vehicles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		f.uow.AssertExpectations(t)
	})
}

func TestService_VehicleLookups(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	vehicle := newTestVehicle()

	f.vehicles.On("FindByVIN", ctx, "UNKNOWN").Return(nil, domain.ErrVehicleNotFound)
	f.vehicles.On("FindByVIN", ctx, vehicle.VIN()).Return(vehicle, nil)
	f.vehicles.On("ListByContract", ctx, vehicle.Contract()).Return([]*domain.Vehicle{vehicle}, nil)

	inUse, err := f.service.VINInUse(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.False(t, inUse)

	inUse, err = f.service.VINInUse(ctx, vehicle.VIN())
	require.NoError(t, err)
	assert.True(t, inUse)

	vins, err := f.service.VehicleVINs(ctx, vehicle.Contract())
	require.NoError(t, err)
	assert.Equal(t, []string{vehicle.VIN()}, vins)
}

// Package application runs the fleet use cases: vehicle and device
// registration, pairing and the cascading removals.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// ServiceDeps groups the collaborators of the provisioning service.
type ServiceDeps struct {
	Vehicles   domain.VehicleRepository
	Devices    domain.DeviceRepository
	Documents  sharedApplication.DocumentChecker
	Customers  domain.CustomerDirectory
	Contracts  domain.ContractDirectory
	Revoker    domain.CredentialRevoker
	OutboxRepo outbox.Repository
	UnitOfWork sharedApplication.UnitOfWork
	Logger     *slog.Logger
}

// Service implements domain.Provisioning and domain.Fleet.
type Service struct {
	vehicles   domain.VehicleRepository
	devices    domain.DeviceRepository
	documents  sharedApplication.DocumentChecker
	customers  domain.CustomerDirectory
	contracts  domain.ContractDirectory
	revoker    domain.CredentialRevoker
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	logger     *slog.Logger
	now        func() time.Time
}

var (
	_ domain.Provisioning = (*Service)(nil)
	_ domain.Fleet        = (*Service)(nil)
)

// NewService creates a provisioning service.
func NewService(deps ServiceDeps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		vehicles:   deps.Vehicles,
		devices:    deps.Devices,
		documents:  deps.Documents,
		customers:  deps.Customers,
		contracts:  deps.Contracts,
		revoker:    deps.Revoker,
		outboxRepo: deps.OutboxRepo,
		uow:        deps.UnitOfWork,
		logger:     deps.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// DocumentExists reports whether key was uploaded to object storage.
func (s *Service) DocumentExists(ctx context.Context, key string) (bool, error) {
	return s.documents.DocumentExists(ctx, key)
}

// VINInUse reports whether a standalone vehicle already carries vin.
func (s *Service) VINInUse(ctx context.Context, vin string) (bool, error) {
	_, err := s.vehicles.FindByVIN(ctx, vin)
	if errors.Is(err, domain.ErrVehicleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateVehicle registers a vehicle whose documents were already checked.
// It joins the transaction carried by ctx when there is one.
func (s *Service) CreateVehicle(ctx context.Context, spec domain.VehicleSpec) (uuid.UUID, error) {
	var v sharedDomain.Violations
	v.Merge(spec.Violations(s.now()))
	if err := v.Err(); err != nil {
		return uuid.Nil, err
	}

	inUse, err := s.VINInUse(ctx, spec.VIN)
	if err != nil {
		return uuid.Nil, err
	}
	if inUse {
		return uuid.Nil, fmt.Errorf("vin %s: %w", spec.VIN, domain.ErrVINInUse)
	}

	vehicle, err := domain.NewVehicle(spec)
	if err != nil {
		return uuid.Nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := s.vehicles.Save(txCtx, vehicle); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, s.outboxRepo, uuid.Nil, vehicle)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return vehicle.ID(), nil
}

// RegisterVehicle registers a vehicle outside of the subscription flow. The
// customer, the contract and both documents must exist.
func (s *Service) RegisterVehicle(ctx context.Context, spec domain.VehicleSpec) (uuid.UUID, error) {
	var v sharedDomain.Violations
	if err := s.requireCustomer(ctx, spec.Customer, &v); err != nil {
		return uuid.Nil, err
	}
	if err := s.requireContract(ctx, spec.Contract, &v); err != nil {
		return uuid.Nil, err
	}
	if err := sharedApplication.CheckDocuments(ctx, s.documents, spec.DocumentKeys(), &v); err != nil {
		return uuid.Nil, err
	}
	if err := v.Err(); err != nil {
		return uuid.Nil, err
	}
	return s.CreateVehicle(ctx, spec)
}

// UpdateVehicle applies patch after checking every referenced document.
func (s *Service) UpdateVehicle(ctx context.Context, id uuid.UUID, patch domain.VehiclePatch) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		vehicle, err := s.vehicles.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		var v sharedDomain.Violations
		if patch.DriverLicenceDocURL != nil {
			if msg := domain.CheckDocumentPrefix("driverLicenceDocURL", *patch.DriverLicenceDocURL, domain.DriverLicencePrefix); msg != "" {
				v.Add(msg)
			}
		}
		if patch.VehicleRegistrationCardDocURL != nil {
			if msg := domain.CheckDocumentPrefix("vehicleRegistrationCardDocURL", *patch.VehicleRegistrationCardDocURL, domain.RegistrationCardPrefix); msg != "" {
				v.Add(msg)
			}
		}
		if err := sharedApplication.CheckDocuments(txCtx, s.documents, patch.DocumentKeys(), &v); err != nil {
			return err
		}
		if err := v.Err(); err != nil {
			return err
		}

		if !vehicle.Apply(patch) {
			return nil
		}
		if err := s.vehicles.Save(txCtx, vehicle); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, s.outboxRepo, uuid.Nil, vehicle)
	})
}

// DeleteVehicle removes a vehicle together with its devices.
func (s *Service) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		vehicle, err := s.vehicles.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		return s.deleteVehicle(txCtx, vehicle)
	})
}

// VehicleVINs lists the VINs of the vehicles insured by a contract.
func (s *Service) VehicleVINs(ctx context.Context, contractID uuid.UUID) ([]string, error) {
	vehicles, err := s.vehicles.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	vins := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		vins = append(vins, v.VIN())
	}
	return vins, nil
}

// DeleteContractFleet removes every vehicle of a contract and their devices.
func (s *Service) DeleteContractFleet(ctx context.Context, contractID uuid.UUID) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		vehicles, err := s.vehicles.ListByContract(txCtx, contractID)
		if err != nil {
			return err
		}
		for _, vehicle := range vehicles {
			if err := s.deleteVehicle(txCtx, vehicle); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) deleteVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	devices, err := s.devices.ListByVehicle(ctx, vehicle.ID())
	if err != nil {
		return err
	}
	for _, device := range devices {
		if err := s.deleteDevice(ctx, device); err != nil {
			return err
		}
	}

	vehicle.MarkDeleted()
	if err := s.vehicles.Delete(ctx, vehicle.ID()); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "vehicle deleted", "vehicle_id", vehicle.ID(), "vin", vehicle.VIN())
	return sharedApplication.RecordEvents(ctx, s.outboxRepo, uuid.Nil, vehicle)
}

func (s *Service) requireCustomer(ctx context.Context, id uuid.UUID, v *sharedDomain.Violations) error {
	ok, err := s.customers.CustomerExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		v.Add(fmt.Sprintf("customer %s must exists", id))
	}
	return nil
}

func (s *Service) requireContract(ctx context.Context, id uuid.UUID, v *sharedDomain.Violations) error {
	ok, err := s.contracts.ContractExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		v.Add(fmt.Sprintf("contract %s must exists", id))
	}
	return nil
}

package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// AssignDeviceCommand links a device to any of a customer, a vehicle and a
// contract. Nil fields are left untouched.
type AssignDeviceCommand struct {
	DeviceID uuid.UUID
	Customer *uuid.UUID
	Vehicle  *uuid.UUID
	Contract *uuid.UUID
}

// CreateDevice registers a device and returns its id.
func (s *Service) CreateDevice(ctx context.Context, spec domain.DeviceSpec) (uuid.UUID, error) {
	device, err := domain.NewDevice(spec)
	if err != nil {
		return uuid.Nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := s.devices.Save(txCtx, device); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, s.outboxRepo, uuid.Nil, device)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return device.ID(), nil
}

// AssignDevice checks every referenced entity, then relinks the device and
// recomputes its pairing status.
func (s *Service) AssignDevice(ctx context.Context, cmd AssignDeviceCommand) (*domain.Device, error) {
	var device *domain.Device
	err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		var v sharedDomain.Violations
		if id := cmd.Customer; id != nil && *id != uuid.Nil {
			if err := s.requireCustomer(txCtx, *id, &v); err != nil {
				return err
			}
		}
		if id := cmd.Vehicle; id != nil && *id != uuid.Nil {
			_, err := s.vehicles.FindByID(txCtx, *id)
			switch {
			case errors.Is(err, domain.ErrVehicleNotFound):
				v.Add(fmt.Sprintf("vehicle %s must exists", *id))
			case err != nil:
				return err
			}
		}
		if id := cmd.Contract; id != nil && *id != uuid.Nil {
			if err := s.requireContract(txCtx, *id, &v); err != nil {
				return err
			}
		}

		found, err := s.devices.FindByID(txCtx, cmd.DeviceID)
		switch {
		case errors.Is(err, domain.ErrDeviceNotFound):
			v.Add(fmt.Sprintf("device %s must exists", cmd.DeviceID))
		case err != nil:
			return err
		}
		if err := v.Err(); err != nil {
			return err
		}

		found.Assign(domain.Associations{Customer: cmd.Customer, Vehicle: cmd.Vehicle, Contract: cmd.Contract})
		device = found
		return s.saveDevice(txCtx, found)
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

// DisableDevice parks a device and clears its pairing date.
func (s *Service) DisableDevice(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	return s.updateDevice(ctx, id, func(d *domain.Device) error {
		d.Disable()
		return nil
	})
}

// EnableDevice lifts a disable.
func (s *Service) EnableDevice(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	return s.updateDevice(ctx, id, func(d *domain.Device) error {
		return d.Enable()
	})
}

// DeleteDevice revokes the device credential and removes the device.
func (s *Service) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		device, err := s.devices.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		return s.deleteDevice(txCtx, device)
	})
}

func (s *Service) updateDevice(ctx context.Context, id uuid.UUID, fn func(*domain.Device) error) (*domain.Device, error) {
	var device *domain.Device
	err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		found, err := s.devices.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := fn(found); err != nil {
			return err
		}
		device = found
		return s.saveDevice(txCtx, found)
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (s *Service) saveDevice(ctx context.Context, device *domain.Device) error {
	if err := s.devices.Save(ctx, device); err != nil {
		return err
	}
	return sharedApplication.RecordEvents(ctx, s.outboxRepo, uuid.Nil, device)
}

func (s *Service) deleteDevice(ctx context.Context, device *domain.Device) error {
	if err := s.revoker.Revoke(ctx, device.ClientID()); err != nil {
		return fmt.Errorf("revoke credential of device %s: %w", device.ID(), err)
	}
	device.MarkDeleted()
	if err := s.devices.Delete(ctx, device.ID()); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "device deleted", "device_id", device.ID())
	return sharedApplication.RecordEvents(ctx, s.outboxRepo, uuid.Nil, device)
}

package domain

import (
	"context"

	"github.com/google/uuid"
)

// Provisioning is the port the subscription lifecycle provisions the fleet
// through.
type Provisioning interface {
	DocumentExists(ctx context.Context, key string) (bool, error)
	VINInUse(ctx context.Context, vin string) (bool, error)
	CreateVehicle(ctx context.Context, spec VehicleSpec) (uuid.UUID, error)
	CreateDevice(ctx context.Context, spec DeviceSpec) (uuid.UUID, error)
}

// Fleet is the port the contract lifecycle reads and removes the vehicles of
// a contract through.
type Fleet interface {
	VehicleVINs(ctx context.Context, contractID uuid.UUID) ([]string, error)
	DeleteContractFleet(ctx context.Context, contractID uuid.UUID) error
}

// CredentialRevoker removes the machine credential of a device.
type CredentialRevoker interface {
	Revoke(ctx context.Context, clientID string) error
}

// CustomerDirectory answers whether a customer exists.
type CustomerDirectory interface {
	CustomerExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ContractDirectory answers whether a contract exists.
type ContractDirectory interface {
	ContractExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// VehicleRepository persists vehicles. Finders return ErrVehicleNotFound.
type VehicleRepository interface {
	Save(ctx context.Context, v *Vehicle) error
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	FindByVIN(ctx context.Context, vin string) (*Vehicle, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*Vehicle, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DeviceRepository persists devices. Finders return ErrDeviceNotFound.
type DeviceRepository interface {
	Save(ctx context.Context, d *Device) error
	FindByID(ctx context.Context, id uuid.UUID) (*Device, error)
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]*Device, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository persists device and driving sessions.
type SessionRepository interface {
	// FindOpen returns the open session of the kind, or ErrSessionNotFound.
	FindOpen(ctx context.Context, device uuid.UUID, kind SessionKind) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// EventLog appends device events.
type EventLog interface {
	Append(ctx context.Context, event *DeviceEvent) error
}

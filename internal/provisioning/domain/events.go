package domain

import (
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	vehicleAggregate = "Vehicle"
	deviceAggregate  = "Device"
)

const (
	RoutingKeyVehicleRegistered       = "provisioning.vehicle.registered"
	RoutingKeyVehicleUpdated          = "provisioning.vehicle.updated"
	RoutingKeyVehicleDeleted          = "provisioning.vehicle.deleted"
	RoutingKeyDeviceRegistered        = "provisioning.device.registered"
	RoutingKeyDeviceStatusChanged     = "provisioning.device.status_changed"
	RoutingKeyDeviceCredentialRevoked = "provisioning.device.credential_revoked"
)

// VehicleRegistered is emitted when a vehicle joins a contract.
type VehicleRegistered struct {
	sharedDomain.BaseEvent
	VehicleID  uuid.UUID `json:"vehicle_id"`
	VIN        string    `json:"vin"`
	ContractID uuid.UUID `json:"contract_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

func NewVehicleRegistered(v *Vehicle) *VehicleRegistered {
	return &VehicleRegistered{
		BaseEvent:  sharedDomain.NewBaseEvent(v.ID(), vehicleAggregate, RoutingKeyVehicleRegistered),
		VehicleID:  v.ID(),
		VIN:        v.VIN(),
		ContractID: v.Contract(),
		CustomerID: v.Customer(),
	}
}

// VehicleUpdated is emitted when editable vehicle fields change.
type VehicleUpdated struct {
	sharedDomain.BaseEvent
	VehicleID uuid.UUID `json:"vehicle_id"`
}

func NewVehicleUpdated(v *Vehicle) *VehicleUpdated {
	return &VehicleUpdated{
		BaseEvent: sharedDomain.NewBaseEvent(v.ID(), vehicleAggregate, RoutingKeyVehicleUpdated),
		VehicleID: v.ID(),
	}
}

// VehicleDeleted is emitted when a vehicle leaves the fleet.
type VehicleDeleted struct {
	sharedDomain.BaseEvent
	VehicleID  uuid.UUID `json:"vehicle_id"`
	VIN        string    `json:"vin"`
	ContractID uuid.UUID `json:"contract_id"`
}

func NewVehicleDeleted(v *Vehicle) *VehicleDeleted {
	return &VehicleDeleted{
		BaseEvent:  sharedDomain.NewBaseEvent(v.ID(), vehicleAggregate, RoutingKeyVehicleDeleted),
		VehicleID:  v.ID(),
		VIN:        v.VIN(),
		ContractID: v.Contract(),
	}
}

// DeviceRegistered is emitted when a device is created.
type DeviceRegistered struct {
	sharedDomain.BaseEvent
	DeviceID     uuid.UUID `json:"device_id"`
	SerialNumber string    `json:"serial_number"`
	ClientID     string    `json:"client_id"`
}

func NewDeviceRegistered(d *Device) *DeviceRegistered {
	return &DeviceRegistered{
		BaseEvent:    sharedDomain.NewBaseEvent(d.ID(), deviceAggregate, RoutingKeyDeviceRegistered),
		DeviceID:     d.ID(),
		SerialNumber: d.SerialNumber(),
		ClientID:     d.ClientID(),
	}
}

// DeviceStatusChanged is emitted on every pairing status change.
type DeviceStatusChanged struct {
	sharedDomain.BaseEvent
	DeviceID uuid.UUID    `json:"device_id"`
	Status   DeviceStatus `json:"status"`
}

func NewDeviceStatusChanged(d *Device) *DeviceStatusChanged {
	return &DeviceStatusChanged{
		BaseEvent: sharedDomain.NewBaseEvent(d.ID(), deviceAggregate, RoutingKeyDeviceStatusChanged),
		DeviceID:  d.ID(),
		Status:    d.Status(),
	}
}

// DeviceCredentialRevoked is emitted when a device and its credential are removed.
type DeviceCredentialRevoked struct {
	sharedDomain.BaseEvent
	DeviceID uuid.UUID `json:"device_id"`
	ClientID string    `json:"client_id"`
}

func NewDeviceCredentialRevoked(d *Device) *DeviceCredentialRevoked {
	return &DeviceCredentialRevoked{
		BaseEvent: sharedDomain.NewBaseEvent(d.ID(), deviceAggregate, RoutingKeyDeviceCredentialRevoked),
		DeviceID:  d.ID(),
		ClientID:  d.ClientID(),
	}
}

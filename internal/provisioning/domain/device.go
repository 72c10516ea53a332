package domain

import (
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// SerialNumberLength is the exact length of a device serial number.
const SerialNumberLength = 32

var (
	ErrDeviceNotFound   = fmt.Errorf("%w: device", sharedDomain.ErrNotFound)
	ErrSerialInUse      = fmt.Errorf("%w: serial number is already registered", sharedDomain.ErrConflict)
	ErrInvalidSerial    = fmt.Errorf("%w: serial number must be %d characters", sharedDomain.ErrValidation, SerialNumberLength)
	ErrDeviceNotEnabled = fmt.Errorf("%w: device is not disabled", sharedDomain.ErrInvalidTransition)
)

// DeviceStatus is the pairing state of a device.
type DeviceStatus string

const (
	DeviceInactive DeviceStatus = "INACTIVE"
	DevicePaired   DeviceStatus = "PAIRED"
	DeviceDisabled DeviceStatus = "DISABLED"
)

// DeviceSpec is everything needed to register a device.
type DeviceSpec struct {
	SerialNumber string
}

// Associations links a device to a customer, a vehicle and a contract. A nil
// field keeps the current link; uuid.Nil clears it.
type Associations struct {
	Customer *uuid.UUID
	Vehicle  *uuid.UUID
	Contract *uuid.UUID
}

// Device is a telematics box installed in a vehicle.
type Device struct {
	sharedDomain.BaseAggregateRoot
	serialNumber string
	clientID     string
	status       DeviceStatus
	customer     *uuid.UUID
	vehicle      *uuid.UUID
	contract     *uuid.UUID
	pairedAt     *time.Time
}

// NewDevice registers an unpaired device. Its machine credential client id
// is derived from the device id.
func NewDevice(spec DeviceSpec) (*Device, error) {
	serial := strings.TrimSpace(spec.SerialNumber)
	if len(serial) != SerialNumberLength {
		return nil, ErrInvalidSerial
	}

	d := &Device{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		serialNumber:      serial,
		status:            DeviceInactive,
	}
	d.clientID = "device-" + d.ID().String()
	d.AddDomainEvent(NewDeviceRegistered(d))
	return d, nil
}

// RehydrateDevice recreates a device from persisted state.
func RehydrateDevice(
	base sharedDomain.BaseAggregateRoot,
	serialNumber, clientID string,
	status DeviceStatus,
	customer, vehicle, contract *uuid.UUID,
	pairedAt *time.Time,
) *Device {
	return &Device{
		BaseAggregateRoot: base,
		serialNumber:      serialNumber,
		clientID:          clientID,
		status:            status,
		customer:          customer,
		vehicle:           vehicle,
		contract:          contract,
		pairedAt:          pairedAt,
	}
}

func (d *Device) SerialNumber() string { return d.serialNumber }
func (d *Device) ClientID() string     { return d.clientID }
func (d *Device) Status() DeviceStatus { return d.status }
func (d *Device) Customer() *uuid.UUID { return d.customer }
func (d *Device) Vehicle() *uuid.UUID  { return d.vehicle }
func (d *Device) Contract() *uuid.UUID { return d.contract }
func (d *Device) PairedAt() *time.Time { return d.pairedAt }
func (d *Device) IsFullyLinked() bool {
	return d.customer != nil && d.vehicle != nil && d.contract != nil
}

// Assign updates the associations and recomputes the pairing status.
func (d *Device) Assign(a Associations) {
	link := func(dst **uuid.UUID, src *uuid.UUID) {
		if src == nil {
			return
		}
		if *src == uuid.Nil {
			*dst = nil
			return
		}
		id := *src
		*dst = &id
	}
	link(&d.customer, a.Customer)
	link(&d.vehicle, a.Vehicle)
	link(&d.contract, a.Contract)
	d.Touch()
	d.recompute()
}

// Disable parks the device until it is explicitly enabled again.
func (d *Device) Disable() {
	if d.status == DeviceDisabled {
		return
	}
	d.status = DeviceDisabled
	d.pairedAt = nil
	d.Touch()
	d.AddDomainEvent(NewDeviceStatusChanged(d))
}

// Enable lifts a disable and pairs the device when it is fully linked.
func (d *Device) Enable() error {
	if d.status != DeviceDisabled {
		return ErrDeviceNotEnabled
	}
	d.status = DeviceInactive
	d.Touch()
	d.recompute()
	if d.status == DeviceInactive {
		d.AddDomainEvent(NewDeviceStatusChanged(d))
	}
	return nil
}

// MarkDeleted records the removal of the device and of its credential.
func (d *Device) MarkDeleted() {
	d.AddDomainEvent(NewDeviceCredentialRevoked(d))
}

func (d *Device) recompute() {
	if d.status == DeviceDisabled {
		return
	}
	switch {
	case d.IsFullyLinked() && d.status != DevicePaired:
		now := time.Now().UTC()
		d.status = DevicePaired
		d.pairedAt = &now
		d.AddDomainEvent(NewDeviceStatusChanged(d))
	case !d.IsFullyLinked() && d.status == DevicePaired:
		d.status = DeviceInactive
		d.pairedAt = nil
		d.AddDomainEvent(NewDeviceStatusChanged(d))
	}
}

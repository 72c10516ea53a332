// Package domain holds the insured fleet: vehicles, the telematics devices
// paired with them and the sessions those devices report.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// MinVehicleYear is the oldest model year accepted.
const MinVehicleYear = 1900

var (
	ErrVehicleNotFound = fmt.Errorf("%w: vehicle", sharedDomain.ErrNotFound)
	ErrVINInUse        = fmt.Errorf("%w: vin is already registered", sharedDomain.ErrConflict)
	ErrVehicleEmptyVIN = errors.New("vehicle vin cannot be empty")
)

// VehicleSpec is everything needed to register a vehicle.
type VehicleSpec struct {
	VIN                           string
	Brand                         string
	Model                         string
	Year                          int
	RegistrationNumber            string
	OriginalInServiceDate         time.Time
	ContractSubscriptionKm        int
	DriverLicenceDocURL           string
	VehicleRegistrationCardDocURL string
	Contract                      uuid.UUID
	Customer                      uuid.UUID
}

// Violations lists the rules the spec breaks, without touching storage.
func (s VehicleSpec) Violations(now time.Time) []string {
	var out []string
	if strings.TrimSpace(s.VIN) == "" {
		out = append(out, "vin is required")
	}
	if s.Year < MinVehicleYear || s.Year > now.Year() {
		out = append(out, fmt.Sprintf("year must be between %d and %d", MinVehicleYear, now.Year()))
	}
	if s.ContractSubscriptionKm < 0 {
		out = append(out, "contractSubscriptionKm must be at least 0")
	}
	if msg := CheckDocumentPrefix("driverLicenceDocURL", s.DriverLicenceDocURL, DriverLicencePrefix); msg != "" {
		out = append(out, msg)
	}
	if msg := CheckDocumentPrefix("vehicleRegistrationCardDocURL", s.VehicleRegistrationCardDocURL, RegistrationCardPrefix); msg != "" {
		out = append(out, msg)
	}
	return out
}

// DocumentKeys maps the document fields of the spec to their storage keys.
func (s VehicleSpec) DocumentKeys() map[string]string {
	return map[string]string{
		"driverLicenceDocURL":           s.DriverLicenceDocURL,
		"vehicleRegistrationCardDocURL": s.VehicleRegistrationCardDocURL,
	}
}

// VehiclePatch carries the editable fields of a vehicle; nil fields are kept.
type VehiclePatch struct {
	Brand                         *string
	Model                         *string
	RegistrationNumber            *string
	ContractSubscriptionKm        *int
	DriverLicenceDocURL           *string
	VehicleRegistrationCardDocURL *string
}

// DocumentKeys maps the document fields present in the patch to their keys.
func (p VehiclePatch) DocumentKeys() map[string]string {
	keys := map[string]string{}
	if p.DriverLicenceDocURL != nil {
		keys["driverLicenceDocURL"] = *p.DriverLicenceDocURL
	}
	if p.VehicleRegistrationCardDocURL != nil {
		keys["vehicleRegistrationCardDocURL"] = *p.VehicleRegistrationCardDocURL
	}
	return keys
}

// Vehicle is an insured vehicle attached to one contract.
type Vehicle struct {
	sharedDomain.BaseAggregateRoot
	spec VehicleSpec
}

// NewVehicle registers a vehicle from spec.
func NewVehicle(spec VehicleSpec) (*Vehicle, error) {
	spec.VIN = strings.TrimSpace(spec.VIN)
	if spec.VIN == "" {
		return nil, ErrVehicleEmptyVIN
	}

	v := &Vehicle{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		spec:              spec,
	}
	v.AddDomainEvent(NewVehicleRegistered(v))
	return v, nil
}

// RehydrateVehicle recreates a vehicle from persisted state.
func RehydrateVehicle(base sharedDomain.BaseAggregateRoot, spec VehicleSpec) *Vehicle {
	return &Vehicle{BaseAggregateRoot: base, spec: spec}
}

func (v *Vehicle) VIN() string       { return v.spec.VIN }
func (v *Vehicle) Spec() VehicleSpec { return v.spec }
func (v *Vehicle) Contract() uuid.UUID {
	return v.spec.Contract
}
func (v *Vehicle) Customer() uuid.UUID {
	return v.spec.Customer
}

// Apply merges the patch and reports whether anything changed.
func (v *Vehicle) Apply(p VehiclePatch) bool {
	changed := false
	setString := func(dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed = true
		}
	}
	setString(&v.spec.Brand, p.Brand)
	setString(&v.spec.Model, p.Model)
	setString(&v.spec.RegistrationNumber, p.RegistrationNumber)
	setString(&v.spec.DriverLicenceDocURL, p.DriverLicenceDocURL)
	setString(&v.spec.VehicleRegistrationCardDocURL, p.VehicleRegistrationCardDocURL)
	if p.ContractSubscriptionKm != nil && *p.ContractSubscriptionKm != v.spec.ContractSubscriptionKm {
		v.spec.ContractSubscriptionKm = *p.ContractSubscriptionKm
		changed = true
	}
	if changed {
		v.Touch()
		v.AddDomainEvent(NewVehicleUpdated(v))
	}
	return changed
}

// MarkDeleted records the removal of the vehicle.
func (v *Vehicle) MarkDeleted() {
	v.AddDomainEvent(NewVehicleDeleted(v))
}

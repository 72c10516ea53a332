package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() VehicleSpec {
	return VehicleSpec{
		VIN:                           "VF1RFB00X12345678",
		Brand:                         "Renault",
		Model:                         "Clio",
		Year:                          2020,
		RegistrationNumber:            "AB-123-CD",
		OriginalInServiceDate:         time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		ContractSubscriptionKm:        10000,
		DriverLicenceDocURL:           DriverLicencePrefix + "licence.pdf",
		VehicleRegistrationCardDocURL: RegistrationCardPrefix + "card.pdf",
		Contract:                      uuid.New(),
		Customer:                      uuid.New(),
	}
}

func TestVehicleSpec_Violations(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(s *VehicleSpec)
		want   []string
	}{
		{name: "valid", mutate: func(s *VehicleSpec) {}},
		{
			name:   "year before 1900",
			mutate: func(s *VehicleSpec) { s.Year = 1899 },
			want:   []string{"year must be between 1900 and 2026"},
		},
		{
			name:   "year in the future",
			mutate: func(s *VehicleSpec) { s.Year = 2027 },
			want:   []string{"year must be between 1900 and 2026"},
		},
		{
			name: "wrong document prefixes",
			mutate: func(s *VehicleSpec) {
				s.DriverLicenceDocURL = "elsewhere/licence.pdf"
				s.VehicleRegistrationCardDocURL = DriverLicencePrefix + "card.pdf"
			},
			want: []string{
				"driverLicenceDocURL must start with vehicle/driver-license/",
				"vehicleRegistrationCardDocURL must start with vehicle/registration-card/",
			},
		},
		{
			name:   "missing vin",
			mutate: func(s *VehicleSpec) { s.VIN = " " },
			want:   []string{"vin is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			assert.Equal(t, tt.want, spec.Violations(now))
		})
	}
}

func TestVehicle_Apply(t *testing.T) {
	v, err := NewVehicle(validSpec())
	require.NoError(t, err)
	require.Len(t, v.DomainEvents(), 1)
	v.ClearDomainEvents()

	brand := "Dacia"
	km := 12000
	assert.True(t, v.Apply(VehiclePatch{Brand: &brand, ContractSubscriptionKm: &km}))
	assert.Equal(t, "Dacia", v.Spec().Brand)
	assert.Equal(t, 12000, v.Spec().ContractSubscriptionKm)
	assert.Len(t, v.DomainEvents(), 1)

	t.Run("unchanged patch records nothing", func(t *testing.T) {
		v.ClearDomainEvents()
		assert.False(t, v.Apply(VehiclePatch{Brand: &brand}))
		assert.Empty(t, v.DomainEvents())
	})
}

func TestVehiclePatch_DocumentKeys(t *testing.T) {
	key := RegistrationCardPrefix + "new.pdf"
	keys := VehiclePatch{VehicleRegistrationCardDocURL: &key}.DocumentKeys()

	assert.Equal(t, map[string]string{"vehicleRegistrationCardDocURL": key}, keys)
}

func TestSession_Close(t *testing.T) {
	start := time.Now()
	s := OpenSession(uuid.New(), SessionDriving, start)
	assert.True(t, s.Open())

	s.Close(start.Add(time.Minute))

	assert.False(t, s.Open())
	assert.Equal(t, time.Minute, s.End.Sub(s.Start))
}

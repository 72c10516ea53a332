// Package persistence stores the fleet in PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/database"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const vinConstraint = "vehicles_vin_key"

// PostgresVehicleRepository implements domain.VehicleRepository using PostgreSQL.
type PostgresVehicleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresVehicleRepository creates a new PostgreSQL vehicle repository.
func NewPostgresVehicleRepository(pool *pgxpool.Pool) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{pool: pool}
}

const vehicleColumns = `
	id, vin, brand, model, year, registration_number, original_in_service_date,
	contract_subscription_km, driver_licence_doc_url, vehicle_registration_card_doc_url,
	contract_id, customer_id, version, created_at, updated_at`

type vehicleRow struct {
	ID                            uuid.UUID
	VIN                           string
	Brand                         string
	Model                         string
	Year                          int
	RegistrationNumber            string
	OriginalInServiceDate         *time.Time
	ContractSubscriptionKm        int
	DriverLicenceDocURL           string
	VehicleRegistrationCardDocURL string
	ContractID                    uuid.UUID
	CustomerID                    uuid.UUID
	Version                       int
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}

// Save upserts the vehicle, bumping its version.
func (r *PostgresVehicleRepository) Save(ctx context.Context, v *domain.Vehicle) error {
	spec := v.Spec()
	var inService *time.Time
	if !spec.OriginalInServiceDate.IsZero() {
		t := spec.OriginalInServiceDate.UTC()
		inService = &t
	}

	query := `
		INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			registration_number = EXCLUDED.registration_number,
			contract_subscription_km = EXCLUDED.contract_subscription_km,
			driver_licence_doc_url = EXCLUDED.driver_licence_doc_url,
			vehicle_registration_card_doc_url = EXCLUDED.vehicle_registration_card_doc_url,
			version = vehicles.version + 1,
			updated_at = NOW()
		WHERE vehicles.version = $13
		RETURNING version
	`

	var newVersion int
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query,
		v.ID(),
		spec.VIN,
		spec.Brand,
		spec.Model,
		spec.Year,
		spec.RegistrationNumber,
		inService,
		spec.ContractSubscriptionKm,
		spec.DriverLicenceDocURL,
		spec.VehicleRegistrationCardDocURL,
		spec.Contract,
		spec.Customer,
		v.Version(),
		v.CreatedAt(),
		v.UpdatedAt(),
	).Scan(&newVersion)
	if err != nil {
		if database.IsNoRows(err) {
			return fmt.Errorf("save vehicle %s: %w", v.ID(), database.ErrOptimisticLocking)
		}
		if database.IsUniqueViolation(err, vinConstraint) {
			return fmt.Errorf("save vehicle %s: %w", spec.VIN, domain.ErrVINInUse)
		}
		return err
	}

	v.SetVersion(newVersion)
	return nil
}

// FindByID retrieves a vehicle by its ID.
func (r *PostgresVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByVIN retrieves a vehicle by its VIN.
func (r *PostgresVehicleRepository) FindByVIN(ctx context.Context, vin string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE vin = $1`
	return r.findOne(ctx, query, vin)
}

// ListByContract returns the vehicles of a contract, oldest first.
func (r *PostgresVehicleRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE contract_id = $1 ORDER BY created_at, id`

	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// Delete removes a vehicle.
func (r *PostgresVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVehicleNotFound
	}
	return nil
}

func (r *PostgresVehicleRepository) findOne(ctx context.Context, query string, arg any) (*domain.Vehicle, error) {
	v, err := scanVehicle(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, err
	}
	return v, nil
}

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var vr vehicleRow
	err := row.Scan(
		&vr.ID,
		&vr.VIN,
		&vr.Brand,
		&vr.Model,
		&vr.Year,
		&vr.RegistrationNumber,
		&vr.OriginalInServiceDate,
		&vr.ContractSubscriptionKm,
		&vr.DriverLicenceDocURL,
		&vr.VehicleRegistrationCardDocURL,
		&vr.ContractID,
		&vr.CustomerID,
		&vr.Version,
		&vr.CreatedAt,
		&vr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return vr.toDomain(), nil
}

func (vr vehicleRow) toDomain() *domain.Vehicle {
	spec := domain.VehicleSpec{
		VIN:                           vr.VIN,
		Brand:                         vr.Brand,
		Model:                         vr.Model,
		Year:                          vr.Year,
		RegistrationNumber:            vr.RegistrationNumber,
		ContractSubscriptionKm:        vr.ContractSubscriptionKm,
		DriverLicenceDocURL:           vr.DriverLicenceDocURL,
		VehicleRegistrationCardDocURL: vr.VehicleRegistrationCardDocURL,
		Contract:                      vr.ContractID,
		Customer:                      vr.CustomerID,
	}
	if vr.OriginalInServiceDate != nil {
		spec.OriginalInServiceDate = vr.OriginalInServiceDate.UTC()
	}

	base := sharedDomain.RehydrateBaseAggregateRoot(
		sharedDomain.RehydrateBaseEntity(vr.ID, vr.CreatedAt, vr.UpdatedAt),
		vr.Version,
	)
	return domain.RehydrateVehicle(base, spec)
}

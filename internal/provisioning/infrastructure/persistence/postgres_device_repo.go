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

const serialConstraint = "devices_serial_number_key"

// PostgresDeviceRepository implements domain.DeviceRepository using PostgreSQL.
type PostgresDeviceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDeviceRepository creates a new PostgreSQL device repository.
func NewPostgresDeviceRepository(pool *pgxpool.Pool) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{pool: pool}
}

const deviceColumns = `
	id, serial_number, client_id, status, customer_id, vehicle_id, contract_id,
	paired_at, version, created_at, updated_at`

// Save upserts the device, bumping its version.
func (r *PostgresDeviceRepository) Save(ctx context.Context, d *domain.Device) error {
	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			customer_id = EXCLUDED.customer_id,
			vehicle_id = EXCLUDED.vehicle_id,
			contract_id = EXCLUDED.contract_id,
			paired_at = EXCLUDED.paired_at,
			version = devices.version + 1,
			updated_at = NOW()
		WHERE devices.version = $9
		RETURNING version
	`

	var newVersion int
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query,
		d.ID(),
		d.SerialNumber(),
		d.ClientID(),
		string(d.Status()),
		d.Customer(),
		d.Vehicle(),
		d.Contract(),
		d.PairedAt(),
		d.Version(),
		d.CreatedAt(),
		d.UpdatedAt(),
	).Scan(&newVersion)
	if err != nil {
		if database.IsNoRows(err) {
			return fmt.Errorf("save device %s: %w", d.ID(), database.ErrOptimisticLocking)
		}
		if database.IsUniqueViolation(err, serialConstraint) {
			return fmt.Errorf("save device %s: %w", d.SerialNumber(), domain.ErrSerialInUse)
		}
		return err
	}

	d.SetVersion(newVersion)
	return nil
}

// FindByID retrieves a device by its ID.
func (r *PostgresDeviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	d, err := scanDevice(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListByVehicle returns the devices paired with a vehicle.
func (r *PostgresDeviceRepository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE vehicle_id = $1 ORDER BY created_at, id`

	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Delete removes a device.
func (r *PostgresDeviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func scanDevice(row pgx.Row) (*domain.Device, error) {
	var (
		id                          uuid.UUID
		serial, clientID, status    string
		customer, vehicle, contract *uuid.UUID
		pairedAt                    *time.Time
		version                     int
		createdAt, updatedAt        time.Time
	)
	if err := row.Scan(&id, &serial, &clientID, &status, &customer, &vehicle, &contract,
		&pairedAt, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	base := sharedDomain.RehydrateBaseAggregateRoot(
		sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		version,
	)
	return domain.RehydrateDevice(base, serial, clientID, domain.DeviceStatus(status),
		customer, vehicle, contract, pairedAt), nil
}

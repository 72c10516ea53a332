package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/database"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCustomerRepository implements domain.Repository using PostgreSQL.
type PostgresCustomerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCustomerRepository creates a new PostgreSQL customer repository.
func NewPostgresCustomerRepository(pool *pgxpool.Pool) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{pool: pool}
}

const customerColumns = `
	id, auth_server_user_id, first_name, last_name, full_name,
	contact, billing, payment, identity_docs, payment_docs,
	insurer, version, created_at, updated_at`

// customerRow represents a database row for customers.
type customerRow struct {
	ID               uuid.UUID
	AuthServerUserID string
	FirstName        string
	LastName         string
	FullName         string
	Contact          []byte
	Billing          []byte
	Payment          []byte
	IdentityDocs     []byte
	PaymentDocs      []byte
	Insurer          bool
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Save upserts the customer, bumping its version.
func (r *PostgresCustomerRepository) Save(ctx context.Context, c *domain.Customer) error {
	docs, err := marshalAll(c.Contact(), c.Billing(), c.Payment(), c.IdentityDocs(), c.PaymentDocs())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			full_name = EXCLUDED.full_name,
			contact = EXCLUDED.contact,
			billing = EXCLUDED.billing,
			payment = EXCLUDED.payment,
			identity_docs = EXCLUDED.identity_docs,
			payment_docs = EXCLUDED.payment_docs,
			insurer = EXCLUDED.insurer,
			version = customers.version + 1,
			updated_at = NOW()
		WHERE customers.version = $12
		RETURNING version
	`

	var newVersion int
	err = sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query,
		c.ID(),
		c.AuthServerUserID(),
		c.FirstName(),
		c.LastName(),
		c.FullName(),
		docs[0], docs[1], docs[2], docs[3], docs[4],
		c.IsInsurer(),
		c.Version(),
		c.CreatedAt(),
		c.UpdatedAt(),
	).Scan(&newVersion)
	if err != nil {
		if database.IsNoRows(err) {
			return fmt.Errorf("save customer %s: %w", c.ID(), database.ErrOptimisticLocking)
		}
		if database.IsUniqueViolation(err, "") {
			return fmt.Errorf("save customer %s: %w", c.ID(), sharedDomain.ErrConflict)
		}
		return err
	}

	c.SetVersion(newVersion)
	return nil
}

// FindByID retrieves a customer by its ID.
func (r *PostgresCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByAuthServerUserID retrieves a customer by its authorization-server account.
func (r *PostgresCustomerRepository) FindByAuthServerUserID(ctx context.Context, authServerUserID string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE auth_server_user_id = $1`
	return r.findOne(ctx, query, authServerUserID)
}

func (r *PostgresCustomerRepository) findOne(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	customer, err := scanCustomer(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var cr customerRow
	err := row.Scan(
		&cr.ID,
		&cr.AuthServerUserID,
		&cr.FirstName,
		&cr.LastName,
		&cr.FullName,
		&cr.Contact,
		&cr.Billing,
		&cr.Payment,
		&cr.IdentityDocs,
		&cr.PaymentDocs,
		&cr.Insurer,
		&cr.Version,
		&cr.CreatedAt,
		&cr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return cr.toDomain()
}

func (cr customerRow) toDomain() (*domain.Customer, error) {
	var (
		contact      domain.Contact
		billing      domain.Billing
		payment      domain.Payment
		identityDocs domain.IdentityDocs
		paymentDocs  domain.PaymentDocs
	)
	parts := []struct {
		raw []byte
		dst any
	}{
		{cr.Contact, &contact},
		{cr.Billing, &billing},
		{cr.Payment, &payment},
		{cr.IdentityDocs, &identityDocs},
		{cr.PaymentDocs, &paymentDocs},
	}
	for _, p := range parts {
		if len(p.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(p.raw, p.dst); err != nil {
			return nil, fmt.Errorf("decode customer %s: %w", cr.ID, err)
		}
	}

	base := sharedDomain.RehydrateBaseAggregateRoot(
		sharedDomain.RehydrateBaseEntity(cr.ID, cr.CreatedAt, cr.UpdatedAt),
		cr.Version,
	)
	return domain.RehydrateCustomer(base,
		cr.AuthServerUserID, cr.FirstName, cr.LastName, cr.FullName,
		contact, billing, payment, identityDocs, paymentDocs,
		cr.Insurer,
	), nil
}

func marshalAll(values ...any) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Package persistence stores subscription applications in PostgreSQL.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/database"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	refConstraint = "applications_ref_key"

	// refLockKey serializes reference assignment across writers.
	refLockKey = 7_210_002
)

var sortColumns = map[domain.SortField]string{
	domain.SortByCreatedAt: "created_at",
	domain.SortByUpdatedAt: "updated_at",
	domain.SortByRef:       "ref",
	domain.SortByStatus:    "status",
}

// PostgresApplicationRepository implements domain.Repository using PostgreSQL.
type PostgresApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresApplicationRepository creates a new PostgreSQL application repository.
func NewPostgresApplicationRepository(pool *pgxpool.Pool) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{pool: pool}
}

const applicationColumns = `
	id, ref, customer_id, status, status_history, vehicles, contract_doc_url,
	ecommerce_product, ecommerce_gateway, contract_id, version, created_at,
	updated_at`

type applicationRow struct {
	ID               uuid.UUID
	Ref              string
	CustomerID       uuid.UUID
	Status           string
	History          []byte
	Vehicles         []byte
	ContractDocURL   string
	EcommerceProduct string
	EcommerceGateway string
	ContractID       *uuid.UUID
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Save upserts the application, bumping its version.
func (r *PostgresApplicationRepository) Save(ctx context.Context, a *domain.Application) error {
	history, err := json.Marshal(a.History())
	if err != nil {
		return fmt.Errorf("encode status history: %w", err)
	}
	vehicles, err := json.Marshal(a.Vehicles())
	if err != nil {
		return fmt.Errorf("encode vehicles: %w", err)
	}

	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			status = EXCLUDED.status,
			status_history = EXCLUDED.status_history,
			vehicles = EXCLUDED.vehicles,
			contract_doc_url = EXCLUDED.contract_doc_url,
			ecommerce_product = EXCLUDED.ecommerce_product,
			ecommerce_gateway = EXCLUDED.ecommerce_gateway,
			contract_id = COALESCE(applications.contract_id, EXCLUDED.contract_id),
			version = applications.version + 1,
			updated_at = NOW()
		WHERE applications.version = $11
		RETURNING version
	`

	contract := a.Contract()
	var newVersion int
	err = sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query,
		a.ID(),
		a.Ref(),
		a.Customer(),
		string(a.Status()),
		string(history),
		string(vehicles),
		contract.ContractDocURL,
		contract.EcommerceProduct,
		string(contract.EcommerceGateway),
		contract.Contract,
		a.Version(),
		a.CreatedAt(),
		a.UpdatedAt(),
	).Scan(&newVersion)
	if err != nil {
		if database.IsNoRows(err) {
			return fmt.Errorf("save application %s: %w", a.ID(), database.ErrOptimisticLocking)
		}
		if database.IsUniqueViolation(err, refConstraint) {
			return fmt.Errorf("save application %s: %w", a.Ref(), domain.ErrReferenceTaken)
		}
		return err
	}

	a.SetVersion(newVersion)
	return nil
}

// FindByID retrieves an application by its ID.
func (r *PostgresApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByContract retrieves the application a contract was opened for.
func (r *PostgresApplicationRepository) FindByContract(ctx context.Context, contractID uuid.UUID, gateway billing.Gateway) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE contract_id = $1 AND ecommerce_gateway = $2`
	return r.findOne(ctx, query, contractID, string(gateway))
}

func (r *PostgresApplicationRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Application, error) {
	a, err := scanApplication(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}
	return a, nil
}

// LastReference returns the greatest assigned reference, nil when none.
// Inside a transaction it takes an advisory lock held until commit.
func (r *PostgresApplicationRepository) LastReference(ctx context.Context) (*string, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	if _, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, refLockKey); err != nil {
			return nil, fmt.Errorf("lock application references: %w", err)
		}
	}

	var ref string
	err := exec.QueryRow(ctx, `SELECT ref FROM applications ORDER BY ref DESC LIMIT 1`).Scan(&ref)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// ProposedVINs returns the VINs among vins proposed by an open application
// other than exclude, sorted.
func (r *PostgresApplicationRepository) ProposedVINs(ctx context.Context, vins []string, exclude *uuid.UUID) ([]string, error) {
	if len(vins) == 0 {
		return nil, nil
	}

	open := make([]string, 0, len(domain.OpenStatuses()))
	for _, s := range domain.OpenStatuses() {
		open = append(open, string(s))
	}

	query := `
		SELECT DISTINCT btrim(v->>'vin') AS vin
		FROM applications a, jsonb_array_elements(a.vehicles) v
		WHERE a.status = ANY($1)
			AND btrim(v->>'vin') = ANY($2)
			AND ($3::uuid IS NULL OR a.id <> $3)
		ORDER BY vin
	`
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, open, vins, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposed []string
	for rows.Next() {
		var vin string
		if err := rows.Scan(&vin); err != nil {
			return nil, err
		}
		proposed = append(proposed, vin)
	}
	return proposed, rows.Err()
}

// List returns a page of applications matching filter and the total count.
func (r *PostgresApplicationRepository) List(
	ctx context.Context,
	filter domain.Filter,
	page sharedDomain.Page,
	sort domain.Sort,
) ([]*domain.Application, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Customer != nil {
		args = append(args, *filter.Customer)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	exec := sharedPersistence.Executor(ctx, r.pool)

	var count int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if sort.Order == sharedDomain.SortAsc {
		direction = "ASC"
	}
	page = page.Normalized()
	args = append(args, page.Limit, page.Start)
	query := fmt.Sprintf(`SELECT %s FROM applications%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		applicationColumns, where, column, direction, direction, len(args)-1, len(args))

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	applications := make([]*domain.Application, 0, page.Limit)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		applications = append(applications, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return applications, count, nil
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var ar applicationRow
	err := row.Scan(
		&ar.ID,
		&ar.Ref,
		&ar.CustomerID,
		&ar.Status,
		&ar.History,
		&ar.Vehicles,
		&ar.ContractDocURL,
		&ar.EcommerceProduct,
		&ar.EcommerceGateway,
		&ar.ContractID,
		&ar.Version,
		&ar.CreatedAt,
		&ar.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var history []domain.HistoryEntry
	if err := json.Unmarshal(ar.History, &history); err != nil {
		return nil, fmt.Errorf("decode status history of %s: %w", ar.ID, err)
	}
	var vehicles []domain.ProposedVehicle
	if err := json.Unmarshal(ar.Vehicles, &vehicles); err != nil {
		return nil, fmt.Errorf("decode vehicles of %s: %w", ar.ID, err)
	}

	base := sharedDomain.RehydrateBaseAggregateRoot(
		sharedDomain.RehydrateBaseEntity(ar.ID, ar.CreatedAt, ar.UpdatedAt),
		ar.Version,
	)
	return domain.RehydrateApplication(
		base,
		ar.Ref,
		ar.CustomerID,
		domain.Status(ar.Status),
		history,
		vehicles,
		domain.ContractDescriptor{
			ContractDocURL:   ar.ContractDocURL,
			EcommerceProduct: ar.EcommerceProduct,
			EcommerceGateway: billing.Gateway(ar.EcommerceGateway),
			Contract:         ar.ContractID,
		},
	), nil
}

// Package persistence stores contracts in PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/database"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	refConstraint = "contracts_ref_key"

	// refLockKey serializes reference assignment across writers.
	refLockKey = 7_210_001
)

// PostgresContractRepository implements domain.Repository using PostgreSQL.
type PostgresContractRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresContractRepository creates a new PostgreSQL contract repository.
func NewPostgresContractRepository(pool *pgxpool.Pool) *PostgresContractRepository {
	return &PostgresContractRepository{pool: pool}
}

const contractColumns = `
	id, ref, customer_id, status, ecommerce_product, ecommerce_subscription,
	ecommerce_checkout_url, ecommerce_gateway, contract_doc_url, version,
	created_at, updated_at`

type contractRow struct {
	ID             uuid.UUID
	Ref            string
	CustomerID     uuid.UUID
	Status         string
	Product        string
	Subscription   string
	CheckoutURL    string
	Gateway        string
	ContractDocURL string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Save upserts the contract, bumping its version.
func (r *PostgresContractRepository) Save(ctx context.Context, c *domain.Contract) error {
	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			status = EXCLUDED.status,
			ecommerce_subscription = EXCLUDED.ecommerce_subscription,
			ecommerce_checkout_url = EXCLUDED.ecommerce_checkout_url,
			contract_doc_url = EXCLUDED.contract_doc_url,
			version = contracts.version + 1,
			updated_at = NOW()
		WHERE contracts.version = $10
		RETURNING version
	`

	var newVersion int
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query,
		c.ID(),
		c.Ref(),
		c.Customer(),
		string(c.Status()),
		c.Product(),
		c.Subscription(),
		c.CheckoutURL(),
		string(c.Gateway()),
		c.ContractDocURL(),
		c.Version(),
		c.CreatedAt(),
		c.UpdatedAt(),
	).Scan(&newVersion)
	if err != nil {
		if database.IsNoRows(err) {
			return fmt.Errorf("save contract %s: %w", c.ID(), database.ErrOptimisticLocking)
		}
		if database.IsUniqueViolation(err, refConstraint) {
			return fmt.Errorf("save contract %s: %w", c.Ref(), domain.ErrReferenceTaken)
		}
		return err
	}

	c.SetVersion(newVersion)
	return nil
}

// FindByID retrieves a contract by its ID.
func (r *PostgresContractRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContract(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrContractNotFound
		}
		return nil, err
	}
	return c, nil
}

// LastReference returns the greatest assigned reference, nil when none.
// Inside a transaction it takes an advisory lock held until commit so
// concurrent writers assign references one at a time.
func (r *PostgresContractRepository) LastReference(ctx context.Context) (*string, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	if _, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, refLockKey); err != nil {
			return nil, fmt.Errorf("lock contract references: %w", err)
		}
	}

	var ref string
	err := exec.QueryRow(ctx, `SELECT ref FROM contracts ORDER BY ref DESC LIMIT 1`).Scan(&ref)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// List returns a page of contracts matching filter and the total count.
func (r *PostgresContractRepository) List(
	ctx context.Context,
	filter domain.Filter,
	page sharedDomain.Page,
	order sharedDomain.SortOrder,
) ([]*domain.Contract, int, error) {
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
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM contracts`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	direction := "DESC"
	if order == sharedDomain.SortAsc {
		direction = "ASC"
	}
	page = page.Normalized()
	args = append(args, page.Limit, page.Start)
	query := fmt.Sprintf(`SELECT %s FROM contracts%s ORDER BY created_at %s, id %s LIMIT $%d OFFSET $%d`,
		contractColumns, where, direction, direction, len(args)-1, len(args))

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contracts := make([]*domain.Contract, 0, page.Limit)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, err
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return contracts, count, nil
}

// Delete removes a contract.
func (r *PostgresContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContractNotFound
	}
	return nil
}

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var cr contractRow
	err := row.Scan(
		&cr.ID,
		&cr.Ref,
		&cr.CustomerID,
		&cr.Status,
		&cr.Product,
		&cr.Subscription,
		&cr.CheckoutURL,
		&cr.Gateway,
		&cr.ContractDocURL,
		&cr.Version,
		&cr.CreatedAt,
		&cr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	base := sharedDomain.RehydrateBaseAggregateRoot(
		sharedDomain.RehydrateBaseEntity(cr.ID, cr.CreatedAt, cr.UpdatedAt),
		cr.Version,
	)
	return domain.RehydrateContract(
		base,
		cr.Ref,
		cr.CustomerID,
		domain.Status(cr.Status),
		cr.Product,
		cr.Subscription,
		cr.CheckoutURL,
		billing.Gateway(cr.Gateway),
		cr.ContractDocURL,
	), nil
}

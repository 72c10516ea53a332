package persistence_test

import (
	"context"
	"os"
	"testing"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/infrastructure/persistence"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	customerPersistence "github.com/felixgeelhaar/covera/internal/customers/infrastructure/persistence"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/migrations"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Failed to ping test database: %v", err)
	}
	if _, err := migrations.Run(ctx, pool, nil); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	for _, table := range []string{"device_events", "device_sessions", "devices", "vehicles", "applications", "contracts", "customers"} {
		_, _ = pool.Exec(ctx, "DELETE FROM "+table)
	}
	return pool
}

func seedCustomer(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	c, err := customerDomain.NewCustomer(uuid.NewString(), "jane@example.com", "Jane", "Doe", "")
	require.NoError(t, err)
	require.NoError(t, customerPersistence.NewPostgresCustomerRepository(pool).Save(context.Background(), c))
	return c.ID()
}

func newContract(t *testing.T, ref string, customer uuid.UUID, status domain.Status) *domain.Contract {
	t.Helper()
	c, err := domain.NewContract(domain.Spec{
		Ref:      ref,
		Customer: customer,
		Product:  "prod_1",
		Gateway:  billing.GatewayStripe,
		Status:   status,
	})
	require.NoError(t, err)
	return c
}

func TestPostgresContractRepository_SaveAndFind(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	repo := persistence.NewPostgresContractRepository(pool)
	customer := seedCustomer(t, pool)

	contract := newContract(t, sharedDomain.FirstReference, customer, domain.StatusPaymentPending)
	require.NoError(t, repo.Save(ctx, contract))
	assert.Equal(t, 0, contract.Version())

	found, err := repo.FindByID(ctx, contract.ID())
	require.NoError(t, err)
	assert.Equal(t, sharedDomain.FirstReference, found.Ref())
	assert.Equal(t, domain.StatusPaymentPending, found.Status())
	assert.Equal(t, billing.GatewayStripe, found.Gateway())

	t.Run("updates bump the version", func(t *testing.T) {
		require.NoError(t, found.AttachSubscription("sub_1"))
		require.NoError(t, repo.Save(ctx, found))
		assert.Equal(t, 1, found.Version())

		again, err := repo.FindByID(ctx, contract.ID())
		require.NoError(t, err)
		assert.Equal(t, "sub_1", again.Subscription())
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		first, err := repo.FindByID(ctx, contract.ID())
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, contract.ID())
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, first))
		err = repo.Save(ctx, second)
		assert.ErrorIs(t, err, sharedDomain.ErrConflict)
	})

	t.Run("duplicate reference", func(t *testing.T) {
		dup := newContract(t, sharedDomain.FirstReference, customer, domain.StatusInactive)
		err := repo.Save(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrReferenceTaken)
	})

	t.Run("missing contract", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})
}

func TestPostgresContractRepository_LastReference(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	repo := persistence.NewPostgresContractRepository(pool)
	customer := seedCustomer(t, pool)

	last, err := repo.LastReference(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	first := sharedDomain.FirstReference
	second, err := sharedDomain.NextReference(&first)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, newContract(t, second, customer, domain.StatusInactive)))
	require.NoError(t, repo.Save(ctx, newContract(t, first, customer, domain.StatusInactive)))

	uow := sharedPersistence.NewPostgresUnitOfWork(pool)
	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = uow.Rollback(txCtx) }()

	last, err = repo.LastReference(txCtx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, second, *last)
}

func TestPostgresContractRepository_List(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	repo := persistence.NewPostgresContractRepository(pool)
	customer := seedCustomer(t, pool)
	other := seedCustomer(t, pool)

	ref := sharedDomain.FirstReference
	for i, status := range []domain.Status{domain.StatusActive, domain.StatusActive, domain.StatusCanceled} {
		owner := customer
		if i == 2 {
			owner = other
		}
		require.NoError(t, repo.Save(ctx, newContract(t, ref, owner, status)))
		next, err := sharedDomain.NextReference(&ref)
		require.NoError(t, err)
		ref = next
	}

	t.Run("filters by status", func(t *testing.T) {
		status := domain.StatusActive
		contracts, count, err := repo.List(ctx, domain.Filter{Status: &status}, sharedDomain.Page{Limit: 10}, sharedDomain.SortDesc)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Len(t, contracts, 2)
	})

	t.Run("filters by customer", func(t *testing.T) {
		contracts, count, err := repo.List(ctx, domain.Filter{Customer: &other}, sharedDomain.Page{Limit: 10}, sharedDomain.SortDesc)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		require.Len(t, contracts, 1)
		assert.Equal(t, domain.StatusCanceled, contracts[0].Status())
	})

	t.Run("pages past the end", func(t *testing.T) {
		contracts, count, err := repo.List(ctx, domain.Filter{}, sharedDomain.Page{Start: 2, Limit: 2}, sharedDomain.SortAsc)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Len(t, contracts, 1)
	})
}

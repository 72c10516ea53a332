package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/database"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const openSessionIndex = "idx_device_sessions_open"

// PostgresSessionRepository implements domain.SessionRepository and
// domain.EventLog using PostgreSQL.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository creates a new PostgreSQL session repository.
func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// FindOpen returns the open session of the given kind for device.
func (r *PostgresSessionRepository) FindOpen(ctx context.Context, device uuid.UUID, kind domain.SessionKind) (*domain.Session, error) {
	query := `
		SELECT id, device_id, kind, started_at, ended_at
		FROM device_sessions
		WHERE device_id = $1 AND kind = $2 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`

	var (
		s    domain.Session
		kstr string
	)
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, device, string(kind)).
		Scan(&s.ID, &s.Device, &kstr, &s.Start, &s.End)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	s.Kind = domain.SessionKind(kstr)
	return &s, nil
}

// Save upserts the session.
func (r *PostgresSessionRepository) Save(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO device_sessions (id, device_id, kind, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET ended_at = EXCLUDED.ended_at
	`
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		s.ID, s.Device, string(s.Kind), s.Start, s.End)
	if err != nil {
		if database.IsUniqueViolation(err, openSessionIndex) {
			return fmt.Errorf("open %s session of device %s: %w", s.Kind, s.Device, sharedDomain.ErrConflict)
		}
		return err
	}
	return nil
}

// Append writes an entry to the device event log.
func (r *PostgresSessionRepository) Append(ctx context.Context, event *domain.DeviceEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO device_events (id, device_id, category, level, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		event.ID, event.Device, string(event.Category), int(event.Level), metadata, event.CreatedAt)
	return err
}

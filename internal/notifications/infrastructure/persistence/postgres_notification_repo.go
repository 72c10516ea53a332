package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/covera/internal/notifications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/covera/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresNotificationRepository implements domain.Repository using PostgreSQL.
type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresNotificationRepository creates a new PostgreSQL notification repository.
func NewPostgresNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// Save inserts the notification.
func (r *PostgresNotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	receivers, err := json.Marshal(n.Receivers())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (id, type, audience, sender, receivers, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		n.ID(),
		string(n.Type()),
		string(n.Audience()),
		n.Sender(),
		receivers,
		[]byte(n.Data()),
		n.CreatedAt(),
	)
	return err
}

// List returns a page of notifications newest first and the total count.
func (r *PostgresNotificationRepository) List(ctx context.Context, filter domain.ListFilter, page sharedDomain.Page) ([]*domain.Notification, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Audience != "" {
		args = append(args, string(filter.Audience))
		conds = append(conds, fmt.Sprintf("audience = $%d", len(args)))
	}
	if filter.Receiver != uuid.Nil {
		receiver, err := json.Marshal([]uuid.UUID{filter.Receiver})
		if err != nil {
			return nil, 0, err
		}
		args = append(args, receiver)
		conds = append(conds, fmt.Sprintf("receivers @> $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	exec := sharedPersistence.Executor(ctx, r.pool)

	var total int
	if err := exec.QueryRow(ctx, "SELECT COUNT(*) FROM notifications "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page = page.Normalized()
	args = append(args, page.Limit, page.Start)
	query := fmt.Sprintf(`
		SELECT id, type, audience, sender, receivers, data, created_at
		FROM notifications %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var (
			id        uuid.UUID
			kind      string
			audience  string
			sender    *uuid.UUID
			receivers []byte
			data      []byte
			createdAt time.Time
		)
		if err := rows.Scan(&id, &kind, &audience, &sender, &receivers, &data, &createdAt); err != nil {
			return nil, 0, err
		}
		var ids []uuid.UUID
		if err := json.Unmarshal(receivers, &ids); err != nil {
			return nil, 0, fmt.Errorf("decode receivers of %s: %w", id, err)
		}
		out = append(out, domain.RehydrateNotification(
			sharedDomain.RehydrateBaseEntity(id, createdAt, createdAt),
			domain.Type(kind), domain.Audience(audience), sender, ids, data,
		))
	}
	return out, total, rows.Err()
}

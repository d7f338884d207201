package selections

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Selection is a service a customer wants billed once the property is
// approved.
type Selection struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	UserID     uuid.UUID
	ServiceID  uuid.UUID
	Quantity   int
	UseSticker bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SelectionInput struct {
	ServiceID  uuid.UUID
	Quantity   int
	UseSticker bool
}

// ReplaceResult is the stored set after a replace, plus the requested
// services that were left out because the property already subscribes to
// them.
type ReplaceResult struct {
	Selections        []Selection
	AlreadySubscribed []uuid.UUID
}

// Store persists pending selections.
type Store interface {
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Selection, error)
	// Replace makes the stored set equal to items, keeping the row identity
	// of services that stay selected. Services with a subscription on the
	// property are dropped from items unless allowAdditional is set. It
	// waits for any selection of the property that is being billed.
	Replace(ctx context.Context, propertyID, userID uuid.UUID, items []SelectionInput, allowAdditional bool) (ReplaceResult, error)
	DeleteByService(ctx context.Context, propertyID, serviceID uuid.UUID) (bool, error)
	// InactiveOrUnknownServices returns the ids that do not name an active
	// service.
	InactiveOrUnknownServices(ctx context.Context, serviceIDs []uuid.UUID) ([]uuid.UUID, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectionColumns = `id, property_id, user_id, service_id, quantity, use_sticker, created_at, updated_at`

func (r *Repository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Selection, error) {
	return listByProperty(ctx, r.pool, propertyID)
}

func (r *Repository) Replace(ctx context.Context, propertyID, userID uuid.UUID, items []SelectionInput, allowAdditional bool) (ReplaceResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Rows held by activation are released once their subscription is
	// recorded; the statements below then see it.
	if _, err := tx.Exec(ctx, `
		SELECT id FROM pending_service_selections WHERE property_id = $1 FOR UPDATE
	`, propertyID); err != nil {
		return ReplaceResult{}, fmt.Errorf("lock selections: %w", err)
	}

	var result ReplaceResult
	if !allowAdditional {
		subscribed, err := subscribedServices(ctx, tx, propertyID)
		if err != nil {
			return ReplaceResult{}, err
		}
		kept := make([]SelectionInput, 0, len(items))
		for _, item := range items {
			if subscribed[item.ServiceID] {
				result.AlreadySubscribed = append(result.AlreadySubscribed, item.ServiceID)
				continue
			}
			kept = append(kept, item)
		}
		items = kept
	}

	keep := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		keep = append(keep, item.ServiceID)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM pending_service_selections
		WHERE property_id = $1 AND NOT (service_id = ANY($2))
	`, propertyID, keep); err != nil {
		return ReplaceResult{}, fmt.Errorf("delete removed selections: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO pending_service_selections (id, property_id, user_id, service_id, quantity, use_sticker)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (property_id, service_id) DO UPDATE
			SET quantity = EXCLUDED.quantity,
				use_sticker = EXCLUDED.use_sticker,
				user_id = EXCLUDED.user_id,
				updated_at = now()
		`, uuid.New(), propertyID, userID, item.ServiceID, item.Quantity, item.UseSticker)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return ReplaceResult{}, fmt.Errorf("upsert selections: %w", err)
	}

	result.Selections, err = listByProperty(ctx, tx, propertyID)
	if err != nil {
		return ReplaceResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ReplaceResult{}, fmt.Errorf("commit selections: %w", err)
	}
	return result, nil
}

func subscribedServices(ctx context.Context, q querier, propertyID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := q.Query(ctx, `
		SELECT DISTINCT service_id FROM property_subscriptions WHERE property_id = $1
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list subscribed services: %w", err)
	}
	defer rows.Close()

	subscribed := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		subscribed[id] = true
	}
	return subscribed, rows.Err()
}

func (r *Repository) DeleteByService(ctx context.Context, propertyID, serviceID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM pending_service_selections WHERE property_id = $1 AND service_id = $2
	`, propertyID, serviceID)
	if err != nil {
		return false, fmt.Errorf("delete selection: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) InactiveOrUnknownServices(ctx context.Context, serviceIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id FROM services WHERE id = ANY($1) AND is_active`, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup services: %w", err)
	}
	defer rows.Close()

	active := make(map[uuid.UUID]bool, len(serviceIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active[id] = true
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	missing := make([]uuid.UUID, 0)
	for _, id := range serviceIDs {
		if !active[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listByProperty(ctx context.Context, q querier, propertyID uuid.UUID) ([]Selection, error) {
	rows, err := q.Query(ctx, `
		SELECT `+selectionColumns+`
		FROM pending_service_selections
		WHERE property_id = $1
		ORDER BY created_at ASC, id ASC
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	defer rows.Close()

	items := make([]Selection, 0)
	for rows.Next() {
		var s Selection
		if err := rows.Scan(&s.ID, &s.PropertyID, &s.UserID, &s.ServiceID, &s.Quantity, &s.UseSticker, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

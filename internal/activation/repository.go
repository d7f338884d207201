package activation

import (
	"context"
	"errors"
	"fmt"

	"collection_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BillableProperty is the slice of a property and its owner that
// activation needs.
type BillableProperty struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	ServiceStatus     string
	BillingCustomerID *string
}

// PendingSelection is a queued selection joined with its service prices.
type PendingSelection struct {
	ID             uuid.UUID
	PropertyID     uuid.UUID
	ServiceID      uuid.UUID
	Quantity       int
	UseSticker     bool
	BillingPriceID string
	StickerPriceID *string
}

// PriceID returns the price to bill: the sticker price when requested and
// available, otherwise the service's regular price.
func (s PendingSelection) PriceID() string {
	if s.UseSticker && s.StickerPriceID != nil && *s.StickerPriceID != "" {
		return *s.StickerPriceID
	}
	return s.BillingPriceID
}

type CompletedSelection struct {
	Selection      PendingSelection
	SubscriptionID string
	PriceID        string
}

// ErrSelectionGone is returned by BillSelection when the selection was
// removed after it was listed.
var ErrSelectionGone = errors.New("selection no longer pending")

// BillFunc bills the selection as it stands while its row is locked.
type BillFunc func(ctx context.Context, sel PendingSelection) (CompletedSelection, error)

type Store interface {
	GetBillableProperty(ctx context.Context, propertyID uuid.UUID) (BillableProperty, error)
	ListPendingSelections(ctx context.Context, propertyID uuid.UUID) ([]PendingSelection, error)
	// BillSelection locks the selection row, re-reads it and calls bill.
	// When bill succeeds the subscription is recorded and the selection
	// removed in the same transaction, so an edit to the row waits until
	// billing is settled and is never overwritten by the delete.
	BillSelection(ctx context.Context, selectionID uuid.UUID, bill BillFunc) (CompletedSelection, error)
	// ListApprovedPropertyIDsWithSelections pages through approved
	// properties, owned by a billing customer, that still have selections.
	// Ids are ascending and strictly greater than after.
	ListApprovedPropertyIDsWithSelections(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetBillableProperty(ctx context.Context, propertyID uuid.UUID) (BillableProperty, error) {
	var p BillableProperty
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.owner_id, p.service_status, u.billing_customer_id
		FROM properties p
		JOIN users u ON u.id = p.owner_id
		WHERE p.id = $1
	`, propertyID).Scan(&p.ID, &p.OwnerID, &p.ServiceStatus, &p.BillingCustomerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return BillableProperty{}, apperr.NotFound("property not found")
	}
	if err != nil {
		return BillableProperty{}, fmt.Errorf("get billable property: %w", err)
	}
	return p, nil
}

func (r *Repository) ListPendingSelections(ctx context.Context, propertyID uuid.UUID) ([]PendingSelection, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ps.id, ps.property_id, ps.service_id, ps.quantity, ps.use_sticker,
			s.billing_price_id, s.sticker_price_id
		FROM pending_service_selections ps
		JOIN services s ON s.id = ps.service_id
		WHERE ps.property_id = $1
		ORDER BY ps.created_at, ps.id
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list pending selections: %w", err)
	}
	defer rows.Close()

	items := make([]PendingSelection, 0)
	for rows.Next() {
		var s PendingSelection
		if err := rows.Scan(&s.ID, &s.PropertyID, &s.ServiceID, &s.Quantity, &s.UseSticker, &s.BillingPriceID, &s.StickerPriceID); err != nil {
			return nil, fmt.Errorf("scan pending selection: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending selections: %w", err)
	}
	return items, nil
}

func (r *Repository) BillSelection(ctx context.Context, selectionID uuid.UUID, bill BillFunc) (CompletedSelection, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return CompletedSelection{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var sel PendingSelection
	err = tx.QueryRow(ctx, `
		SELECT ps.id, ps.property_id, ps.service_id, ps.quantity, ps.use_sticker,
			s.billing_price_id, s.sticker_price_id
		FROM pending_service_selections ps
		JOIN services s ON s.id = ps.service_id
		WHERE ps.id = $1
		FOR UPDATE OF ps
	`, selectionID).Scan(&sel.ID, &sel.PropertyID, &sel.ServiceID, &sel.Quantity, &sel.UseSticker, &sel.BillingPriceID, &sel.StickerPriceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return CompletedSelection{}, ErrSelectionGone
	}
	if err != nil {
		return CompletedSelection{}, fmt.Errorf("lock selection: %w", err)
	}

	done, err := bill(ctx, sel)
	if err != nil {
		return CompletedSelection{}, err
	}

	// A retry after a crash between billing and this write gets the same
	// subscription back from the provider's idempotency key.
	if _, err := tx.Exec(ctx, `
		INSERT INTO property_subscriptions (id, property_id, service_id, billing_subscription_id, billing_price_id, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (billing_subscription_id) DO NOTHING
	`, uuid.New(), sel.PropertyID, sel.ServiceID, done.SubscriptionID, done.PriceID, sel.Quantity); err != nil {
		return CompletedSelection{}, fmt.Errorf("insert property subscription: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pending_service_selections WHERE id = $1`, sel.ID); err != nil {
		return CompletedSelection{}, fmt.Errorf("delete selection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return CompletedSelection{}, fmt.Errorf("commit: %w", err)
	}
	return done, nil
}

func (r *Repository) ListApprovedPropertyIDsWithSelections(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.id
		FROM properties p
		JOIN users u ON u.id = p.owner_id
		JOIN pending_service_selections ps ON ps.property_id = p.id
		WHERE p.service_status = 'approved'
			AND COALESCE(u.billing_customer_id, '') <> ''
			AND p.id > $1
		ORDER BY p.id
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list approved properties with selections: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan property id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerLookup resolves the billing customer of a user. An empty string
// means the user has never been billed.
type CustomerLookup interface {
	BillingCustomerID(ctx context.Context, userID uuid.UUID) (string, error)
}

// OwnedPropertyLister lists the properties a user currently owns.
type OwnedPropertyLister interface {
	OwnedPropertyIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

var _ CustomerLookup = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) BillingCustomerID(ctx context.Context, userID uuid.UUID) (string, error) {
	var customerID *string
	err := r.pool.QueryRow(ctx, `SELECT billing_customer_id FROM users WHERE id = $1`, userID).Scan(&customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get billing customer: %w", err)
	}
	if customerID == nil {
		return "", nil
	}
	return *customerID, nil
}

package zones

import (
	"context"
	"errors"
	"fmt"

	"collection_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reader provides read access to the configured zones.
type Reader interface {
	List(ctx context.Context) ([]Zone, error)
	GetByID(ctx context.Context, id string) (Zone, error)
}

// Repository reads and imports zones in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a zones repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Reader = (*Repository)(nil)

// List returns all zones ordered by id.
func (r *Repository) List(ctx context.Context) ([]Zone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, center_lat, center_lng, radius_miles, service_days
		FROM zones
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	result := make([]Zone, 0)
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Center.Lat, &z.Center.Lng, &z.RadiusMiles, &z.ServiceDays); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		result = append(result, z)
	}
	return result, rows.Err()
}

// GetByID returns one zone.
func (r *Repository) GetByID(ctx context.Context, id string) (Zone, error) {
	var z Zone
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, center_lat, center_lng, radius_miles, service_days
		FROM zones
		WHERE id = $1`, id).Scan(&z.ID, &z.Name, &z.Center.Lat, &z.Center.Lng, &z.RadiusMiles, &z.ServiceDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Zone{}, apperr.NotFound("zone not found")
		}
		return Zone{}, fmt.Errorf("get zone: %w", err)
	}
	return z, nil
}

// Upsert writes the given zones in one transaction.
func (r *Repository) Upsert(ctx context.Context, zones []Zone) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin zone import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, z := range zones {
		days := z.ServiceDays
		if days == nil {
			days = []string{}
		}
		batch.Queue(`
			INSERT INTO zones (id, name, center_lat, center_lng, radius_miles, service_days)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				center_lat = EXCLUDED.center_lat,
				center_lng = EXCLUDED.center_lng,
				radius_miles = EXCLUDED.radius_miles,
				service_days = EXCLUDED.service_days,
				updated_at = now()`,
			z.ID, z.Name, z.Center.Lat, z.Center.Lng, z.RadiusMiles, days)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert zones: %w", err)
	}
	return tx.Commit(ctx)
}

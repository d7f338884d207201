package repository

import (
	"context"
	"errors"
	"fmt"

	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/internal/properties/routing"
	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const propertyNotFoundMsg = "property not found"

const propertyColumns = `id, owner_id, address, latitude, longitude, service_status, zone_id,
	pickup_day, pickup_day_source, pickup_day_detected_at, insertion_cost_miles, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

func New(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, params CreatePropertyParams) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO properties (id, owner_id, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+propertyColumns,
		uuid.New(), params.OwnerID, params.Address, params.Latitude, params.Longitude,
	)

	property, err := scanProperty(row)
	if err != nil {
		return Property{}, fmt.Errorf("insert property: %w", err)
	}
	return property, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	return r.scanOne(row)
}

func (r *PgRepository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return r.scanOne(row)
}

func (r *PgRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Property, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	return collectProperties(rows)
}

func (r *PgRepository) OwnedPropertyIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM properties WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned property ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (r *PgRepository) ListMissingCoordinates(ctx context.Context, limit int) ([]Property, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE latitude IS NULL OR longitude IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list properties without coordinates: %w", err)
	}
	defer rows.Close()

	return collectProperties(rows)
}

func (r *PgRepository) UpdateCoordinates(ctx context.Context, id uuid.UUID, point zones.Point) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties SET latitude = $2, longitude = $3, updated_at = now()
		WHERE id = $1
	`, id, point.Lat, point.Lng)
	if err != nil {
		return fmt.Errorf("update coordinates: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(propertyNotFoundMsg)
	}
	return nil
}

func (r *PgRepository) SaveAssignment(ctx context.Context, id uuid.UUID, assignment domain.Assignment) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE properties
		SET zone_id = $2,
			pickup_day = $3,
			pickup_day_source = 'route_optimized',
			pickup_day_detected_at = $4,
			insertion_cost_miles = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING `+propertyColumns,
		id, assignment.ZoneID, string(assignment.PickupDay), assignment.DetectedAt, assignment.InsertionCostMiles,
	)
	return r.scanOne(row)
}

func (r *PgRepository) SetPickupDayManual(ctx context.Context, id uuid.UUID, zoneID *string, day domain.Weekday) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE properties
		SET zone_id = COALESCE($2, zone_id),
			pickup_day = $3,
			pickup_day_source = 'manual',
			pickup_day_detected_at = NULL,
			insertion_cost_miles = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING `+propertyColumns,
		id, zoneID, string(day),
	)
	return r.scanOne(row)
}

func (r *PgRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.ServiceStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties SET service_status = $3, updated_at = now()
		WHERE id = $1 AND service_status = $2
	`, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) SetStatus(ctx context.Context, id uuid.UUID, to domain.ServiceStatus) (domain.ServiceStatus, Property, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", Property{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous string
	err = tx.QueryRow(ctx, `SELECT service_status FROM properties WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", Property{}, apperr.NotFound(propertyNotFoundMsg)
	}
	if err != nil {
		return "", Property{}, fmt.Errorf("lock property: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE properties SET service_status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+propertyColumns,
		id, string(to),
	)
	property, err := scanProperty(row)
	if err != nil {
		return "", Property{}, fmt.Errorf("set status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", Property{}, fmt.Errorf("commit status: %w", err)
	}
	return domain.ServiceStatus(previous), property, nil
}

func (r *PgRepository) ListApprovedStops(ctx context.Context, zoneID string, day domain.Weekday, excludeID uuid.UUID) ([]routing.Stop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, latitude, longitude
		FROM properties
		WHERE zone_id = $1
			AND pickup_day = $2
			AND service_status = 'approved'
			AND latitude IS NOT NULL AND longitude IS NOT NULL
			AND id <> $3
	`, zoneID, string(day), excludeID)
	if err != nil {
		return nil, fmt.Errorf("list approved stops: %w", err)
	}
	defer rows.Close()

	stops := make([]routing.Stop, 0)
	for rows.Next() {
		var stop routing.Stop
		if err := rows.Scan(&stop.PropertyID, &stop.Location.Lat, &stop.Location.Lng); err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stops, nil
}

func (r *PgRepository) scanOne(row pgx.Row) (Property, error) {
	property, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, apperr.NotFound(propertyNotFoundMsg)
	}
	if err != nil {
		return Property{}, fmt.Errorf("scan property: %w", err)
	}
	return property, nil
}

func collectProperties(rows pgx.Rows) ([]Property, error) {
	items := make([]Property, 0)
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, property)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var (
		p         Property
		status    string
		pickupDay *string
		source    string
	)

	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Address, &p.Latitude, &p.Longitude, &status, &p.ZoneID,
		&pickupDay, &source, &p.PickupDayDetectedAt, &p.InsertionCostMiles, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Property{}, err
	}

	p.ServiceStatus = domain.ServiceStatus(status)
	p.PickupDaySource = domain.PickupDaySource(source)
	if pickupDay != nil {
		day := domain.Weekday(*pickupDay)
		p.PickupDay = &day
	}
	return p, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/forage/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicatePlace is returned by Insert when a concurrent insert for the
// same place won the uniqueness race.
var ErrDuplicatePlace = errors.New("place already exists")

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolationCode = "23505"

// placeColumns lists the storable columns of the places table, in scan order.
// The normalized_name and rounded_lat/rounded_lng columns are generated by
// the store for matching and are intentionally absent.
const placeColumns = `id, name, latitude, longitude, address_line, city, region,
		postal_code, country, mapbox_place_id, verified, created_at`

// GetByExternalID retrieves the place carrying the given external feature id.
// It returns nil without an error when no such place exists.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*models.Place, error) {
	query := `
		SELECT ` + placeColumns + `
		FROM places
		WHERE mapbox_place_id = $1;
	`

	place, err := r.scanPlace(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		return nil, fmt.Errorf("failed to query place by external id: %w", err)
	}

	return place, nil
}

// GetByNormalizedNameAndRoundedCoords retrieves the place whose store-side
// normalized name and rounded coordinates match the given values exactly.
// It returns nil without an error when no such place exists.
func (r *Repository) GetByNormalizedNameAndRoundedCoords(
	ctx context.Context,
	normalizedName string,
	rounded models.Coordinates,
) (*models.Place, error) {
	query := `
		SELECT ` + placeColumns + `
		FROM places
		WHERE normalized_name = $1 AND rounded_lat = $2 AND rounded_lng = $3;
	`

	place, err := r.scanPlace(r.db.QueryRow(ctx, query, normalizedName, rounded.Latitude, rounded.Longitude))
	if err != nil {
		return nil, fmt.Errorf("failed to query place by normalized name and rounded coordinates: %w", err)
	}

	return place, nil
}

// ListWithinBoundingBox retrieves all places inside the given coordinate box,
// ordered by ascending catalog id so fuzzy-match tie-breaking is stable.
func (r *Repository) ListWithinBoundingBox(
	ctx context.Context,
	minLat, maxLat, minLng, maxLng float64,
) ([]models.Place, error) {
	var places []models.Place
	query := `
		SELECT ` + placeColumns + `
		FROM places
		WHERE latitude BETWEEN $1 AND $2
			AND longitude BETWEEN $3 AND $4
		ORDER BY id ASC;
	`

	rows, err := r.db.Query(ctx, query, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, fmt.Errorf("failed to query places within bounding box: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var place models.Place
		if errScan := rows.Scan(
			&place.ID, &place.Name, &place.Latitude, &place.Longitude,
			&place.AddressLine, &place.City, &place.Region, &place.PostalCode,
			&place.Country, &place.MapboxPlaceID, &place.Verified, &place.CreatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", errScan)
		}
		places = append(places, place)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return places, nil
}

// Insert creates a new catalog row from the storable fields only; the store
// computes the generated matching columns itself. A uniqueness violation is
// reported as ErrDuplicatePlace so the caller can recover from insert races.
func (r *Repository) Insert(ctx context.Context, input models.PlaceInput) (*models.Place, error) {
	query := `
		INSERT INTO places (
			name, latitude, longitude, address_line, city, region,
			postal_code, country, mapbox_place_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + placeColumns + `;
	`

	place, err := r.scanPlace(r.db.QueryRow(ctx, query,
		input.Name, input.Latitude, input.Longitude, input.AddressLine,
		input.City, input.Region, input.PostalCode, input.Country, input.MapboxPlaceID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			r.log.DebugContext(ctx, "Insert lost uniqueness race", "name", input.Name)
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlace, pgErr.ConstraintName)
		}
		return nil, fmt.Errorf("failed to insert place: %w", err)
	}
	if place == nil {
		return nil, errors.New("insert returned no row")
	}

	r.log.DebugContext(ctx, "Inserted new place", "id", place.ID, "name", place.Name)

	return place, nil
}

// scanPlace scans a single place row, mapping pgx.ErrNoRows to a nil place.
func (r *Repository) scanPlace(row pgx.Row) (*models.Place, error) {
	var place models.Place
	err := row.Scan(
		&place.ID, &place.Name, &place.Latitude, &place.Longitude,
		&place.AddressLine, &place.City, &place.Region, &place.PostalCode,
		&place.Country, &place.MapboxPlaceID, &place.Verified, &place.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error for match queries
	}
	if err != nil {
		return nil, err
	}

	return &place, nil
}

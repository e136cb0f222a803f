package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/forage/internal/metrics"
	"github.com/UnknownOlympus/forage/internal/models"
	"github.com/UnknownOlympus/forage/internal/repository"
)

// ErrPlaceConflict is returned when an insert lost a uniqueness race but
// re-resolution still found no matching place. This points at a logic bug
// rather than a transient race, so the registrar does not retry; the caller
// should prompt the user to try again.
var ErrPlaceConflict = errors.New("place conflict could not be resolved, please retry")

// Options adjusts a single create-or-get call.
type Options struct {
	// SuppressExternalIDMatch skips the external-id match tier. The
	// surrounding app sets it when the user already owns a pin for this
	// external place and deliberately wants a second one elsewhere.
	SuppressExternalIDMatch bool
}

// Registrar orchestrates create-or-get for catalog places: resolve first,
// insert only when nothing matched, and recover once from a lost insert race.
type Registrar struct {
	log      *slog.Logger         // Logger for logging registrar activity
	repo     repository.Interface // Catalog store access for inserts
	resolver *Resolver            // Duplicate detection before and after insert
	metrics  *metrics.Metrics     // Metrics for creations and conflicts
}

// NewRegistrar creates a new place registrar.
func NewRegistrar(
	log *slog.Logger,
	repo repository.Interface,
	resolver *Resolver,
	mtr *metrics.Metrics,
) *Registrar {
	return &Registrar{log: log, repo: repo, resolver: resolver, metrics: mtr}
}

// CreateOrGet returns the existing catalog place matching the input, or
// creates a new one. See CreateOrGetWithOptions.
func (pr *Registrar) CreateOrGet(ctx context.Context, input models.PlaceInput) (*models.Place, error) {
	return pr.CreateOrGetWithOptions(ctx, input, Options{})
}

// CreateOrGetWithOptions resolves the input against the catalog and inserts a
// new row only when no match exists. The input carries storable fields only;
// the store computes its generated matching columns itself. When the insert
// loses a uniqueness race against a concurrent identical insert, the
// registrar re-resolves once and returns the winner's row. At most one insert
// is attempted per call.
func (pr *Registrar) CreateOrGetWithOptions(
	ctx context.Context,
	input models.PlaceInput,
	opts Options,
) (*models.Place, error) {
	externalID := input.MapboxPlaceID
	if opts.SuppressExternalIDMatch {
		externalID = nil
	}

	place, method, err := pr.resolver.FindExisting(ctx, input.Name, input.Coordinates(), externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing place: %w", err)
	}
	if place != nil {
		pr.log.InfoContext(ctx, "Reusing existing place",
			"place_id", place.ID, "name", place.Name, "method", method)
		return place, nil
	}

	created, err := pr.repo.Insert(ctx, input)
	if err == nil {
		pr.metrics.PlacesCreated.Inc()
		pr.log.InfoContext(ctx, "Created new place", "place_id", created.ID, "name", created.Name)
		return created, nil
	}

	if !errors.Is(err, repository.ErrDuplicatePlace) {
		return nil, fmt.Errorf("failed to create place: %w", err)
	}

	// A concurrent identical insert won the race; its row must be visible now.
	pr.metrics.InsertConflicts.Inc()
	pr.log.InfoContext(ctx, "Insert lost uniqueness race, re-resolving", "name", input.Name)

	place, method, err = pr.resolver.FindExisting(ctx, input.Name, input.Coordinates(), externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-resolve after insert conflict: %w", err)
	}
	if place == nil {
		return nil, ErrPlaceConflict
	}

	pr.log.InfoContext(ctx, "Recovered place after insert race",
		"place_id", place.ID, "name", place.Name, "method", method)

	return place, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/forage/internal/geomath"
	"github.com/UnknownOlympus/forage/internal/metrics"
	"github.com/UnknownOlympus/forage/internal/models"
	"github.com/UnknownOlympus/forage/internal/repository"
)

// MatchMethod identifies which strategy matched an existing place.
type MatchMethod string

const (
	// MatchMethodExternalID means the place was found by its geocoder-confirmed external id.
	MatchMethodExternalID MatchMethod = "external_id"
	// MatchMethodExact means the place was found by normalized name and rounded coordinates.
	MatchMethodExact MatchMethod = "exact"
	// MatchMethodFuzzy means the place was found by name similarity and proximity scoring.
	MatchMethodFuzzy MatchMethod = "fuzzy"
	// MatchMethodNone means no existing place matched.
	MatchMethodNone MatchMethod = "none"
)

// Fuzzy matching parameters. The bounding box spans roughly 50 m around the
// queried coordinate; candidates beyond 50 m great-circle distance or below
// 0.8 name similarity are discarded before scoring.
const (
	fuzzyBoundingBoxDelta  = 0.00045
	fuzzyMaxDistanceMeters = 50.0
	fuzzyMinSimilarity     = 0.8
	fuzzySimilarityWeight  = 0.7
	fuzzyDistanceWeight    = 0.3
)

// Resolver decides whether a place already exists in the shared catalog.
type Resolver struct {
	log     *slog.Logger         // Logger for logging resolution activity
	repo    repository.Interface // Catalog store access
	metrics *metrics.Metrics     // Metrics for match outcomes
}

// NewResolver creates a new place resolver over the given catalog repository.
func NewResolver(log *slog.Logger, repo repository.Interface, mtr *metrics.Metrics) *Resolver {
	return &Resolver{log: log, repo: repo, metrics: mtr}
}

// FindExisting looks for a catalog place matching the given name and
// coordinate, trying three strategies in order: external id, exact
// (normalized name + rounded coordinate), then fuzzy (proximity + name
// similarity). The first strategy that hits wins. externalID must only be
// passed when the geocoder has already marked it safe; the resolver does not
// re-derive that judgment. Store errors always propagate: treating an
// unreachable catalog as "no match" would silently create duplicates.
func (rs *Resolver) FindExisting(
	ctx context.Context,
	name string,
	coords models.Coordinates,
	externalID *string,
) (*models.Place, MatchMethod, error) {
	if externalID != nil && *externalID != "" {
		place, err := rs.repo.GetByExternalID(ctx, *externalID)
		if err != nil {
			return nil, MatchMethodNone, fmt.Errorf("external id lookup failed: %w", err)
		}
		if place != nil {
			rs.recordMatch(ctx, MatchMethodExternalID, place)
			return place, MatchMethodExternalID, nil
		}
	}

	place, err := rs.repo.GetByNormalizedNameAndRoundedCoords(
		ctx, geomath.NormalizeName(name), geomath.RoundCoordinates(coords),
	)
	if err != nil {
		return nil, MatchMethodNone, fmt.Errorf("exact lookup failed: %w", err)
	}
	if place != nil {
		rs.recordMatch(ctx, MatchMethodExact, place)
		return place, MatchMethodExact, nil
	}

	place, err = rs.findFuzzy(ctx, name, coords)
	if err != nil {
		return nil, MatchMethodNone, fmt.Errorf("fuzzy lookup failed: %w", err)
	}
	if place != nil {
		rs.recordMatch(ctx, MatchMethodFuzzy, place)
		return place, MatchMethodFuzzy, nil
	}

	rs.metrics.PlaceMatches.WithLabelValues(string(MatchMethodNone)).Inc()

	return nil, MatchMethodNone, nil
}

// findFuzzy scores every catalog place within a small bounding box around the
// coordinate and returns the best survivor. Candidates are enumerated in
// ascending id order and compared with strict greater-than, so the lowest id
// wins score ties.
func (rs *Resolver) findFuzzy(
	ctx context.Context,
	name string,
	coords models.Coordinates,
) (*models.Place, error) {
	candidates, err := rs.repo.ListWithinBoundingBox(ctx,
		coords.Latitude-fuzzyBoundingBoxDelta, coords.Latitude+fuzzyBoundingBoxDelta,
		coords.Longitude-fuzzyBoundingBoxDelta, coords.Longitude+fuzzyBoundingBoxDelta,
	)
	if err != nil {
		return nil, err
	}

	var best *models.Place
	bestScore := 0.0

	for i := range candidates {
		candidate := candidates[i]
		dist := geomath.DistanceMeters(coords, models.Coordinates{
			Latitude:  candidate.Latitude,
			Longitude: candidate.Longitude,
		})
		if dist > fuzzyMaxDistanceMeters {
			continue
		}

		similarity := geomath.NameSimilarity(name, candidate.Name)
		if similarity < fuzzyMinSimilarity {
			continue
		}

		score := fuzzySimilarityWeight*similarity + fuzzyDistanceWeight*(1-dist/fuzzyMaxDistanceMeters)
		if best == nil || score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	return best, nil
}

func (rs *Resolver) recordMatch(ctx context.Context, method MatchMethod, place *models.Place) {
	rs.metrics.PlaceMatches.WithLabelValues(string(method)).Inc()
	rs.log.DebugContext(ctx, "Matched existing place", "method", method, "place_id", place.ID)
}

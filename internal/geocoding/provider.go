package geocoding

import (
	"context"
	"net/http"

	"github.com/UnknownOlympus/forage/internal/models"
)

// ReverseGeocoder resolves a coordinate into an address. Resolve never fails
// hard: geocoding is an enrichment, so provider errors degrade to a nil
// result rather than propagating to the caller.
type ReverseGeocoder interface {
	Resolve(ctx context.Context, coords models.Coordinates) *models.GeocodeResult
	ClearCache()
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/forage/internal/geomath"
	"github.com/UnknownOlympus/forage/internal/metrics"
	"github.com/UnknownOlympus/forage/internal/models"
	"golang.org/x/time/rate"
)

// MapboxBaseURL is the Mapbox reverse-geocoding endpoint. The permanent
// dataset is required because resolved addresses are stored on catalog rows.
const MapboxBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places-permanent"

const (
	// maxCandidates is the number of features requested per lookup.
	maxCandidates = 5
	// safeIDDistanceMeters is the maximum distance between the query point and
	// a non-address feature for its id to be trusted for deduplication.
	safeIDDistanceMeters = 75.0
	// providerName labels provider metrics.
	providerName = "mapbox"
)

// ErrMapboxMissingToken is returned when the provider is constructed without an API token.
var ErrMapboxMissingToken = errors.New("mapbox access token is required")

// MapboxGeocoder resolves coordinates to addresses using the Mapbox Geocoding
// API, caching results (including failures) by rounded coordinate.
type MapboxGeocoder struct {
	client  HTTPClient       // HTTP client for making requests
	baseURL string           // Base URL for the Mapbox API
	token   string           // Access token for the Mapbox API
	cache   *Cache           // Process-wide result cache keyed by rounded coordinate
	limiter *rate.Limiter    // Rate limiter for outbound calls
	metrics *metrics.Metrics // Metrics for lookup outcomes and latency
	log     *slog.Logger     // Logger for logging operations
}

// NewMapboxGeocoder creates a Mapbox reverse geocoder with its own HTTP
// client and cache.
func NewMapboxGeocoder(
	token string,
	timeout time.Duration,
	rateLimit int,
	mtr *metrics.Metrics,
	log *slog.Logger,
) (*MapboxGeocoder, error) {
	if token == "" {
		return nil, ErrMapboxMissingToken
	}

	return &MapboxGeocoder{
		client:  &http.Client{Timeout: timeout},
		baseURL: MapboxBaseURL,
		token:   token,
		cache:   NewCache(),
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		metrics: mtr,
		log:     log,
	}, nil
}

// NewMapboxGeocoderWithClient allows injecting a custom HTTP client and cache.
// Useful for testing with mocked HTTP clients and independent caches.
func NewMapboxGeocoderWithClient(
	client HTTPClient,
	token string,
	cache *Cache,
	limiter *rate.Limiter,
	mtr *metrics.Metrics,
	log *slog.Logger,
) *MapboxGeocoder {
	return &MapboxGeocoder{
		client:  client,
		baseURL: MapboxBaseURL,
		token:   token,
		cache:   cache,
		limiter: limiter,
		metrics: mtr,
		log:     log,
	}
}

// Resolve returns the best address candidate for a coordinate, or nil when
// the provider is unreachable, returns an error, or has no features for the
// location. Results are cached by rounded coordinate, so each location hits
// the provider at most once per process lifetime; failures are cached as nil
// for the same reason.
func (mg *MapboxGeocoder) Resolve(ctx context.Context, coords models.Coordinates) *models.GeocodeResult {
	if cached, found := mg.cache.Get(coords); found {
		mg.metrics.GeocodeCacheHit.Inc()
		return cached
	}

	result, err := mg.fetch(ctx, coords)
	if err != nil {
		mg.log.WarnContext(ctx, "Reverse geocoding failed, caching negative result",
			"lat", coords.Latitude, "lon", coords.Longitude, "error", err)
		mg.metrics.GeocodeLookups.WithLabelValues("failure").Inc()
		mg.cache.Set(coords, nil)
		return nil
	}

	mg.metrics.GeocodeLookups.WithLabelValues("success").Inc()
	mg.cache.Set(coords, result)

	return result
}

// ClearCache drops all cached lookups. Called by the surrounding app on
// logout so stale addresses never cross user sessions.
func (mg *MapboxGeocoder) ClearCache() {
	mg.cache.Clear()
}

// fetch performs a single reverse-geocode request and candidate selection.
func (mg *MapboxGeocoder) fetch(ctx context.Context, coords models.Coordinates) (*models.GeocodeResult, error) {
	if err := mg.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// Mapbox uses lon,lat order in the path.
	reqURL, err := url.Parse(fmt.Sprintf("%s/%.6f,%.6f.json", mg.baseURL, coords.Longitude, coords.Latitude))
	if err != nil {
		return nil, fmt.Errorf("failed to build request URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("access_token", mg.token)
	query.Set("types", "address,poi")
	query.Set("limit", fmt.Sprintf("%d", maxCandidates))
	// Required by provider terms when the result is stored.
	query.Set("permanent", "true")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := mg.client.Do(req)
	mg.metrics.RequestSeconds.WithLabelValues(providerName).Observe(time.Since(startTime).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to execute reverse-geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed mapboxResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode mapbox response: %w", err)
	}

	if len(parsed.Features) == 0 {
		return nil, errors.New("mapbox API returned no features")
	}

	selected := selectCandidate(coords, parsed.Features)

	return buildResult(coords, selected), nil
}

// selectCandidate picks the best feature for the queried point: the closest
// address-typed feature with a resolvable center wins, then the closest
// feature of any other type. When no feature has a center the first feature
// of the response is taken unranked.
func selectCandidate(query models.Coordinates, features []mapboxFeature) mapboxFeature {
	var (
		bestAddress     *mapboxFeature
		bestAddressDist float64
		bestOther       *mapboxFeature
		bestOtherDist   float64
	)

	for i := range features {
		feature := features[i]
		center := feature.centerCoordinates()
		if center == nil {
			continue
		}

		dist := geomath.DistanceMeters(query, *center)
		if feature.isAddressType() {
			if bestAddress == nil || dist < bestAddressDist {
				bestAddress = &features[i]
				bestAddressDist = dist
			}
		} else {
			if bestOther == nil || dist < bestOtherDist {
				bestOther = &features[i]
				bestOtherDist = dist
			}
		}
	}

	if bestAddress != nil {
		return *bestAddress
	}
	if bestOther != nil {
		return *bestOther
	}

	return features[0]
}

// buildResult assembles a GeocodeResult from the selected feature, deciding
// whether its external id is safe to use for catalog deduplication.
func buildResult(query models.Coordinates, feature mapboxFeature) *models.GeocodeResult {
	result := &models.GeocodeResult{
		Address:     feature.PlaceName,
		AddressLine: feature.addressLine(),
		FeatureType: feature.primaryType(),
		Center:      feature.centerCoordinates(),
	}

	if result.Center != nil {
		dist := geomath.DistanceMeters(query, *result.Center)
		result.DistanceMeters = &dist
	}

	for _, entry := range feature.Context {
		kind, _, found := strings.Cut(entry.ID, ".")
		if !found {
			continue
		}
		switch kind {
		case "place":
			result.City = entry.Text
		case "region":
			result.Region = entry.Text
		case "postcode":
			result.PostalCode = entry.Text
		case "country":
			result.Country = entry.Text
		}
	}

	// A POI id is only trusted for deduplication when the feature sits close
	// enough to the pin; otherwise two different nearby places could collapse
	// onto one catalog row.
	result.PlaceIDSafe = feature.isAddressType() ||
		(result.DistanceMeters != nil && *result.DistanceMeters <= safeIDDistanceMeters)

	if result.PlaceIDSafe && feature.ID != "" {
		id := feature.ID
		result.MapboxPlaceID = &id
	}

	return result
}

// Mapbox API response types (simplified for the reverse-geocoding use-case).

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	ID        string          `json:"id"`
	PlaceName string          `json:"place_name"`
	Text      string          `json:"text"`
	Address   string          `json:"address"` // House number for address features
	PlaceType []string        `json:"place_type"`
	Center    []float64       `json:"center"` // [lon, lat]
	Geometry  *mapboxGeometry `json:"geometry"`
	Context   []mapboxContext `json:"context"`
}

type mapboxGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

type mapboxContext struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ShortCode string `json:"short_code"`
}

// centerCoordinates resolves the feature's own point from either the center
// field or the nested geometry. Returns nil when neither is usable.
func (mf mapboxFeature) centerCoordinates() *models.Coordinates {
	const pairLength = 2

	if len(mf.Center) == pairLength {
		return &models.Coordinates{Latitude: mf.Center[1], Longitude: mf.Center[0]}
	}
	if mf.Geometry != nil && len(mf.Geometry.Coordinates) == pairLength {
		return &models.Coordinates{
			Latitude:  mf.Geometry.Coordinates[1],
			Longitude: mf.Geometry.Coordinates[0],
		}
	}

	return nil
}

// isAddressType reports whether the feature is address-typed.
func (mf mapboxFeature) isAddressType() bool {
	for _, placeType := range mf.PlaceType {
		if placeType == models.FeatureTypeAddress {
			return true
		}
	}

	return false
}

// primaryType returns the feature's first place type, if any.
func (mf mapboxFeature) primaryType() string {
	if len(mf.PlaceType) == 0 {
		return ""
	}

	return mf.PlaceType[0]
}

// addressLine combines the house number and street text when both exist.
func (mf mapboxFeature) addressLine() string {
	if mf.Address != "" && mf.Text != "" {
		return mf.Address + " " + mf.Text
	}

	return mf.Text
}
